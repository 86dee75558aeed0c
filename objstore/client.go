package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brendadeeznuts1111/project-R-score-sub010/internal/listxml"
	"github.com/brendadeeznuts1111/project-R-score-sub010/internal/sigv4"
)

const (
	defaultContentType = "application/octet-stream"
	metaHeaderPrefix   = "x-amz-meta-"

	// maxKeysLimit is the provider ceiling for one listing page.
	maxKeysLimit = 1000

	// errSnippetLimit bounds how much of an error response body is
	// carried into a RequestError.
	errSnippetLimit = 512
)

// Operation names a presignable client operation.
type Operation string

const (
	OpGet Operation = "GET"
	OpPut Operation = "PUT"
)

// Client performs signed operations against one bucket on one
// S3-compatible endpoint. Construct with New. A Client is safe for
// concurrent use: all of its state is immutable after construction and
// every request is signed with fresh wall-clock time.
type Client struct {
	cfg      Config
	base     *url.URL
	http     *http.Client
	log      zerolog.Logger
	now      func() time.Time
	checksum Checksum
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client, e.g. to supply
// timeouts or a test transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a zerolog logger. The default logger is disabled,
// keeping library use silent.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides the wall-clock source used for signing. Intended
// for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithContentChecksum enables an integrity digest on uploads; see
// Checksum.
func WithContentChecksum(sum Checksum) Option {
	return func(c *Client) { c.checksum = sum }
}

// New validates cfg and builds a client. Missing credentials surface
// here as ErrConfiguration, before any network I/O.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, &ConfigError{Field: "endpoint", Message: err.Error()}
	}

	c := &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{},
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) credentials() sigv4.Credentials {
	return sigv4.Credentials{
		AccessKeyID:     c.cfg.AccessKeyID,
		SecretAccessKey: c.cfg.SecretAccessKey,
		Region:          c.cfg.Region,
		Service:         "s3",
	}
}

// objectURL builds the path-style URL for key, with the path encoded
// once so the wire request and the canonical request agree.
func (c *Client) objectURL(key string) *url.URL {
	u := *c.base
	u.Path = "/" + c.cfg.Bucket + "/" + key
	u.RawPath = sigv4.EncodePath(u.Path)
	return &u
}

func (c *Client) bucketURL() *url.URL {
	u := *c.base
	u.Path = "/" + c.cfg.Bucket
	u.RawPath = ""
	return &u
}

// PutObject uploads body under key. The ETag of the stored object is
// returned, plus the version ID on versioned buckets.
func (c *Client) PutObject(ctx context.Context, key string, body []byte, opts PutOptions) (PutResult, error) {
	u := c.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(body))
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	req.ContentLength = int64(len(body))

	contentType := opts.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	req.Header.Set("Content-Type", contentType)
	if opts.CacheControl != "" {
		req.Header.Set("Cache-Control", opts.CacheControl)
	}
	if opts.ContentDisposition != "" {
		req.Header.Set("Content-Disposition", opts.ContentDisposition)
	}
	if opts.ServerSideEncryption != "" {
		req.Header.Set("X-Amz-Server-Side-Encryption", opts.ServerSideEncryption)
	}
	for name, value := range opts.Metadata {
		req.Header.Set(metaHeaderPrefix+strings.ToLower(name), value)
	}
	if c.checksum != nil {
		req.Header.Set("Content-MD5", c.checksum.Sum(body))
	}

	res, err := c.send(req, sigv4.HashPayload(body))
	if err != nil {
		return PutResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return PutResult{}, c.requestError("put", key, res)
	}
	io.Copy(io.Discard, res.Body)

	c.log.Debug().Str("op", "put").Str("key", key).
		Int("bytes", len(body)).Int("status", res.StatusCode).
		Msg("object stored")

	return PutResult{
		ETag:      strings.Trim(res.Header.Get("ETag"), `"`),
		VersionID: res.Header.Get("X-Amz-Version-Id"),
	}, nil
}

// GetObject downloads the whole object at key.
func (c *Client) GetObject(ctx context.Context, key string) (GetResult, error) {
	return c.get(ctx, key, "")
}

// GetObjectRange downloads length bytes starting at offset; length < 0
// means through the end of the object, and length == 0 is rejected
// with ErrConfiguration since an empty byte range has no HTTP Range
// form. The provider may answer 200 or 206.
func (c *Client) GetObjectRange(ctx context.Context, key string, offset, length int64) (GetResult, error) {
	if length == 0 {
		return GetResult{}, &ConfigError{Field: "length", Message: "byte range must not be empty"}
	}
	rangeSpec := fmt.Sprintf("bytes=%d-", offset)
	if length > 0 {
		rangeSpec = fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	}
	return c.get(ctx, key, rangeSpec)
}

func (c *Client) get(ctx context.Context, key, rangeSpec string) (GetResult, error) {
	u := c.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return GetResult{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if rangeSpec != "" {
		req.Header.Set("Range", rangeSpec)
	}

	res, err := c.send(req, sigv4.EmptyBodySHA256)
	if err != nil {
		return GetResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return GetResult{}, c.requestError("get", key, res)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return GetResult{}, fmt.Errorf("%w: reading body for %q: %v", ErrDownload, key, err)
	}

	result := GetResult{
		Body:          body,
		ContentType:   res.Header.Get("Content-Type"),
		ContentLength: int64(len(body)),
		ETag:          strings.Trim(res.Header.Get("ETag"), `"`),
		Metadata:      metadataFromHeader(res.Header),
	}
	if lm := res.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = t
		}
	}

	c.log.Debug().Str("op", "get").Str("key", key).
		Int("bytes", len(body)).Int("status", res.StatusCode).
		Msg("object fetched")
	return result, nil
}

// ListObjects fetches one page of a ListObjectsV2 listing.
func (c *Client) ListObjects(ctx context.Context, opts ListOptions) (ListPage, error) {
	u := c.bucketURL()
	q := url.Values{}
	q.Set("list-type", "2")
	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}
	if opts.MaxKeys > 0 {
		maxKeys := opts.MaxKeys
		if maxKeys > maxKeysLimit {
			maxKeys = maxKeysLimit
		}
		q.Set("max-keys", strconv.Itoa(maxKeys))
	}
	if opts.ContinuationToken != "" {
		q.Set("continuation-token", opts.ContinuationToken)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ListPage{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	res, err := c.send(req, sigv4.EmptyBodySHA256)
	if err != nil {
		return ListPage{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return ListPage{}, c.requestError("list", "", res)
	}

	decoded, err := listxml.Parse(res.Body)
	if err != nil {
		return ListPage{}, fmt.Errorf("%w: decoding listing: %v", ErrList, err)
	}

	page := ListPage{
		NextContinuationToken: decoded.NextContinuationToken,
		IsTruncated:           decoded.IsTruncated,
		Skipped:               decoded.Skipped,
	}
	if len(decoded.Objects) > 0 {
		page.Objects = make([]ObjectSummary, len(decoded.Objects))
		for i, o := range decoded.Objects {
			page.Objects[i] = ObjectSummary(o)
		}
	}

	c.log.Debug().Str("op", "list").Str("prefix", opts.Prefix).
		Int("objects", len(page.Objects)).Bool("truncated", page.IsTruncated).
		Msg("listing page fetched")
	return page, nil
}

// DeleteObject removes the object at key. Deleting a missing object is
// a success: the provider's 404 is treated as the idempotent no-op it
// is.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	u := c.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigning, err)
	}

	res, err := c.send(req, sigv4.EmptyBodySHA256)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		c.log.Debug().Str("op", "delete").Str("key", key).
			Msg("object already absent")
		return nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.requestError("delete", key, res)
	}

	c.log.Debug().Str("op", "delete").Str("key", key).
		Int("status", res.StatusCode).Msg("object deleted")
	return nil
}

// SignedURL returns a presigned URL for op on key, valid for expires
// (clamped to the provider maximum of seven days). The URL is fetchable
// with no additional headers; presigned uploads carry
// X-Amz-Content-Sha256=UNSIGNED-PAYLOAD.
func (c *Client) SignedURL(op Operation, key string, expires time.Duration) (string, error) {
	method := string(op)
	if method != string(OpGet) && method != string(OpPut) {
		return "", &ConfigError{Field: "operation", Message: fmt.Sprintf("%q is not presignable", op)}
	}

	u := c.objectURL(key)
	signed, err := sigv4.PresignURL(method, u, c.credentials(), c.now(), expires, op == OpPut)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed.String(), nil
}

// send signs req and executes it.
func (c *Client) send(req *http.Request, payloadHash string) (*http.Response, error) {
	if err := sigv4.SignRequest(req, payloadHash, c.credentials(), c.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("objstore: %s %s: %w", req.Method, req.URL.Path, err)
	}
	return res, nil
}

// requestError drains a bounded snippet of the failed response body.
func (c *Client) requestError(op, key string, res *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, errSnippetLimit))
	err := &RequestError{
		Op:         op,
		Key:        key,
		StatusCode: res.StatusCode,
		Snippet:    strings.TrimSpace(string(snippet)),
	}
	c.log.Debug().Str("op", op).Str("key", key).
		Int("status", res.StatusCode).Msg("request failed")
	return err
}

func metadataFromHeader(h http.Header) map[string]string {
	var meta map[string]string
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, metaHeaderPrefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[strings.TrimPrefix(lower, metaHeaderPrefix)] = values[0]
	}
	return meta
}
