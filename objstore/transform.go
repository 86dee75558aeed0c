package objstore

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Metadata tags recording which transforms an upload carries. Downloads
// read them back to invert the transforms in reverse order.
const (
	metaCompression          = "compression"
	metaCompressionRequested = "compression-requested"
	metaEncryption           = "encryption"
	metaOriginalContentType  = "original-content-type"
)

// Compression names a payload compression codec.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"

	// CompressionZstd is accepted but degrades to gzip; the degradation
	// is recorded in the object's metadata so readers can see what was
	// requested versus applied.
	CompressionZstd Compression = "zstd"
)

const encryptionAES256 = "aes256"

// Pipeline layers reversible payload transforms over a Client.
//
// Uploads apply compression first, then encryption, and tag the object
// metadata with what was applied. Downloads read the tags and invert in
// strictly reverse order: decrypt, then decompress. encrypt(compress(x))
// only inverts as decompress(decrypt(y)). Objects carrying no tags pass
// through untouched.
type Pipeline struct {
	client *Client
	aesKey []byte
	log    zerolog.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithEncryptionSecret enables AES-256-GCM encryption. The cipher key
// is the SHA-256 of the secret; each upload generates a fresh random
// nonce, prepended to the ciphertext.
func WithEncryptionSecret(secret string) PipelineOption {
	return func(p *Pipeline) {
		key := sha256.Sum256([]byte(secret))
		p.aesKey = key[:]
	}
}

// WithPipelineLogger attaches a logger to the pipeline.
func WithPipelineLogger(l zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline wraps client with transform support.
func NewPipeline(client *Client, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client: client,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UploadOptions controls which transforms an upload receives.
type UploadOptions struct {
	// ContentType of the original payload, recorded in metadata and
	// restored on download.
	ContentType string

	Compression Compression

	// Encrypt requires the pipeline to have been built with
	// WithEncryptionSecret.
	Encrypt bool

	// Metadata entries to store alongside the transform tags.
	Metadata map[string]string
}

// Upload transforms body and stores it under key.
func (p *Pipeline) Upload(ctx context.Context, key string, body []byte, opts UploadOptions) (PutResult, error) {
	meta := make(map[string]string, len(opts.Metadata)+4)
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	payload := body
	transformed := false

	switch opts.Compression {
	case CompressionNone:
	case CompressionGzip, CompressionZstd:
		compressed, err := gzipCompress(payload)
		if err != nil {
			return PutResult{}, fmt.Errorf("objstore: compressing %q: %w", key, err)
		}
		payload = compressed
		transformed = true
		meta[metaCompression] = string(CompressionGzip)
		if opts.Compression == CompressionZstd {
			meta[metaCompressionRequested] = string(CompressionZstd)
			p.log.Debug().Str("key", key).Msg("zstd requested, stored as gzip")
		}
	default:
		return PutResult{}, &ConfigError{
			Field:   "compression",
			Message: fmt.Sprintf("unsupported codec %q", opts.Compression),
		}
	}

	if opts.Encrypt {
		if p.aesKey == nil {
			return PutResult{}, &ConfigError{Field: "encryption", Message: "no secret configured"}
		}
		encrypted, err := p.encrypt(payload)
		if err != nil {
			return PutResult{}, fmt.Errorf("objstore: encrypting %q: %w", key, err)
		}
		payload = encrypted
		transformed = true
		meta[metaEncryption] = encryptionAES256
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	storedContentType := contentType
	if transformed {
		// The stored bytes are no longer what the content type claims.
		meta[metaOriginalContentType] = contentType
		storedContentType = defaultContentType
	}

	return p.client.PutObject(ctx, key, payload, PutOptions{
		ContentType: storedContentType,
		Metadata:    meta,
	})
}

// DownloadResult is an object restored to its original form.
type DownloadResult struct {
	Body []byte

	// ContentType is the original content type recorded at upload
	// time, or the stored one for untransformed objects.
	ContentType string
}

// Download fetches key and inverts whatever transforms its metadata
// records: decrypt first, then decompress.
func (p *Pipeline) Download(ctx context.Context, key string) (DownloadResult, error) {
	obj, err := p.client.GetObject(ctx, key)
	if err != nil {
		return DownloadResult{}, err
	}

	payload := obj.Body

	if enc := obj.Metadata[metaEncryption]; enc != "" {
		if enc != encryptionAES256 {
			return DownloadResult{}, fmt.Errorf("%w: unknown scheme %q on %q", ErrDecryption, enc, key)
		}
		if p.aesKey == nil {
			return DownloadResult{}, &ConfigError{Field: "encryption", Message: "no secret configured"}
		}
		payload, err = p.decrypt(payload)
		if err != nil {
			return DownloadResult{}, fmt.Errorf("%w: %q: %v", ErrDecryption, key, err)
		}
	}

	if comp := obj.Metadata[metaCompression]; comp != "" {
		if comp != string(CompressionGzip) {
			return DownloadResult{}, fmt.Errorf("%w: unknown codec %q on %q", ErrDecompression, comp, key)
		}
		payload, err = gzipDecompress(payload)
		if err != nil {
			return DownloadResult{}, fmt.Errorf("%w: %q: %v", ErrDecompression, key, err)
		}
	}

	contentType := obj.ContentType
	if original := obj.Metadata[metaOriginalContentType]; original != "" {
		contentType = original
	}
	return DownloadResult{Body: payload, ContentType: contentType}, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// encrypt seals data with AES-256-GCM, returning nonce || ciphertext.
func (p *Pipeline) encrypt(data []byte) ([]byte, error) {
	gcm, err := p.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (p *Pipeline) decrypt(data []byte) ([]byte, error) {
	gcm, err := p.gcm()
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func (p *Pipeline) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(p.aesKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
