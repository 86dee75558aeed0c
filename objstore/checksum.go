package objstore

import (
	"crypto/md5"
	"encoding/base64"
)

// -----------------------------------------------------------------------------
// Upload integrity checksums
// -----------------------------------------------------------------------------

// Checksum computes the integrity digest attached to uploads. The sum
// is carried in the Content-MD5 request header, which S3-compatible
// providers verify against the received body before acknowledging the
// write.
type Checksum interface {
	// Name identifies the digest algorithm.
	Name() string

	// Sum returns the header-ready digest of the payload.
	Sum(body []byte) string
}

// md5Checksum implements Checksum using MD5.
type md5Checksum struct{}

// NewMD5Checksum creates the Content-MD5 checksum component.
//
// Per RFC 1864 the header value is the base64 of the raw 128-bit
// digest, not its hex form. Use with WithContentChecksum to enable
// integrity-checked uploads.
func NewMD5Checksum() Checksum {
	return &md5Checksum{}
}

func (c *md5Checksum) Name() string {
	return "md5"
}

func (c *md5Checksum) Sum(body []byte) string {
	digest := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(digest[:])
}
