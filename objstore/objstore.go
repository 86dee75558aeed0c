// Package objstore is an authenticated client for S3-compatible object
// storage.
//
// The client signs every request under AWS Signature Version 4 and
// speaks plain HTTP to the endpoint: no SDK sits in between. On top of
// the four object operations (put, get, list, delete) and presigned
// URLs, the package layers:
//
//   - Pipeline: reversible payload transforms (gzip compression,
//     AES-256-GCM encryption) tagged in object metadata so downloads
//     can invert them deterministically
//   - Batch: bounded-concurrency fan-out over many uploads with
//     per-item outcome capture
//   - ObjectIterator / Stats: pagination-safe enumeration and
//     aggregation over listings
//
// A Client owns its immutable Config; nothing in this package keeps
// process-wide state, so multiple clients with different credentials
// coexist freely.
package objstore

import "time"

// ObjectSummary describes one object in a listing.
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ListPage is one page of a listing.
type ListPage struct {
	Objects []ObjectSummary

	// NextContinuationToken is the opaque cursor for the next page.
	// Forward it unmodified; "" means the response carried none.
	NextContinuationToken string

	// IsTruncated reports whether more pages follow.
	IsTruncated bool

	// Skipped counts listing entries dropped for missing required
	// fields.
	Skipped int
}

// ListOptions controls a single ListObjects call.
type ListOptions struct {
	Prefix string

	// MaxKeys caps the page size. Zero means the provider default;
	// values above 1000 are clamped to 1000.
	MaxKeys int

	// ContinuationToken resumes a prior listing.
	ContinuationToken string
}

// PutOptions carries the optional attributes of an upload.
type PutOptions struct {
	// ContentType defaults to "application/octet-stream".
	ContentType        string
	ContentDisposition string
	CacheControl       string

	// ServerSideEncryption, when set, is sent as
	// X-Amz-Server-Side-Encryption (e.g. "AES256").
	ServerSideEncryption string

	// Metadata entries are stored as x-amz-meta-* headers.
	Metadata map[string]string
}

// PutResult is the provider's acknowledgment of an upload.
type PutResult struct {
	ETag      string
	VersionID string
}

// GetResult is a downloaded object with its standard attributes.
type GetResult struct {
	Body          []byte
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  time.Time

	// Metadata holds the object's x-amz-meta-* entries, keys
	// lower-cased without the header prefix.
	Metadata map[string]string
}

// StorageStats aggregates a full listing walk.
type StorageStats struct {
	ObjectCount int
	TotalBytes  int64

	// Pages is the number of listing pages fetched.
	Pages int

	// SkippedEntries counts malformed listing entries dropped across
	// all pages.
	SkippedEntries int
}
