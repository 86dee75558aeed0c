package objstore

import (
	"errors"
	"fmt"
)

// Sentinel errors. Operation failures wrap these, so callers can branch
// with errors.Is while still receiving status and context via
// *RequestError.
var (
	// ErrConfiguration indicates missing or invalid client
	// configuration. It is always raised before any network call.
	ErrConfiguration = errors.New("objstore: invalid configuration")

	// ErrSigning indicates the request signature could not be computed.
	ErrSigning = errors.New("objstore: request signing failed")

	ErrUpload   = errors.New("objstore: upload failed")
	ErrDownload = errors.New("objstore: download failed")
	ErrList     = errors.New("objstore: listing failed")
	ErrDelete   = errors.New("objstore: delete failed")

	// ErrDecompression indicates a stored compressed payload could not
	// be inflated.
	ErrDecompression = errors.New("objstore: corrupt compressed payload")

	// ErrDecryption indicates ciphertext or its prepended IV failed
	// authentication.
	ErrDecryption = errors.New("objstore: payload decryption failed")

	// ErrPaginationLimit indicates a listing walk exceeded the page cap
	// without the provider ever terminating pagination.
	ErrPaginationLimit = errors.New("objstore: listing pagination never terminated")
)

// RequestError describes a non-2xx response from the provider.
type RequestError struct {
	// Op is the client operation: "put", "get", "list", or "delete".
	Op string

	// Key is the object key, when the operation targets one.
	Key string

	StatusCode int

	// Snippet holds the leading bytes of the response body.
	Snippet string
}

func (e *RequestError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("objstore: %s: status %d: %s", e.Op, e.StatusCode, e.Snippet)
	}
	return fmt.Sprintf("objstore: %s %q: status %d: %s", e.Op, e.Key, e.StatusCode, e.Snippet)
}

// Unwrap maps the failed operation to its sentinel.
func (e *RequestError) Unwrap() error {
	switch e.Op {
	case "put":
		return ErrUpload
	case "get":
		return ErrDownload
	case "list":
		return ErrList
	case "delete":
		return ErrDelete
	}
	return nil
}

// ConfigError reports which configuration field failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("objstore: configuration: %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
