// Package sigv4 implements AWS Signature Version 4 request signing for
// S3-compatible endpoints.
//
// The signer is stateless: every call derives its own signing scope from
// the supplied wall-clock time and credentials, so concurrent signing
// calls never observe each other's state. Both authentication modes are
// supported:
//
//   - header mode, which emits an Authorization header plus X-Amz-Date
//     and X-Amz-Content-Sha256
//   - query (presigned) mode, which folds the X-Amz-* parameters into
//     the URL itself so the result is fetchable with no extra headers
//
// The presigned canonical request includes the full query string,
// sorted by key and percent-encoded per RFC 3986.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	algorithm     = "AWS4-HMAC-SHA256"
	requestSuffix = "aws4_request"

	timeFormat = "20060102T150405Z"
	dateFormat = "20060102"

	// UnsignedPayload is the literal payload hash used when the body is
	// not hashed, e.g. for presigned uploads.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyBodySHA256 is the hex SHA-256 of a zero-length body.
	EmptyBodySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// MaxPresignExpiry is the longest lifetime a presigned URL may carry.
	MaxPresignExpiry = 7 * 24 * time.Hour
)

// Signing errors.
var (
	ErrNoAccessKey = errors.New("sigv4: empty access key id")
	ErrNoSecret    = errors.New("sigv4: empty secret access key")
	ErrNoRegion    = errors.New("sigv4: empty region")
)

// Credentials identifies the signing principal and scope. The zero
// Service defaults to "s3".
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Service         string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.AccessKeyID) == "" {
		return ErrNoAccessKey
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		return ErrNoSecret
	}
	if strings.TrimSpace(c.Region) == "" {
		return ErrNoRegion
	}
	return nil
}

func (c Credentials) service() string {
	if c.Service == "" {
		return "s3"
	}
	return c.Service
}

// HashPayload returns the hex SHA-256 of body, the value carried in
// X-Amz-Content-Sha256 and the canonical request.
func HashPayload(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SignRequest computes a header-mode signature for req at the given
// time and sets X-Amz-Date, X-Amz-Content-Sha256, and Authorization.
// payloadHash must be the hex SHA-256 of the request body, or
// UnsignedPayload; an empty string means an empty body. Every header
// already present on req is folded into the canonical request, so
// callers must finish populating headers before signing.
func SignRequest(req *http.Request, payloadHash string, creds Credentials, now time.Time) error {
	if err := creds.validate(); err != nil {
		return err
	}
	if payloadHash == "" {
		payloadHash = EmptyBodySHA256
	}

	now = now.UTC()
	amzDate := now.Format(timeFormat)
	dateStamp := now.Format(dateFormat)

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	headerBlock, signedHeaders := canonicalHeaders(req)
	canonicalReq := strings.Join([]string{
		req.Method,
		canonicalPath(req.URL),
		canonicalQuery(req.URL.Query()),
		headerBlock,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := credentialScope(dateStamp, creds)
	signature := sign(canonicalReq, amzDate, scope, dateStamp, creds)

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, creds.AccessKeyID, scope, signedHeaders, signature,
	))
	return nil
}

// PresignURL returns a copy of u carrying a query-mode signature valid
// for the given lifetime. Only the Host header is signed, so the URL is
// fetchable with no additional headers. The payload hash is fixed to
// UNSIGNED-PAYLOAD; when unsignedBody is true the hash is additionally
// advertised as an X-Amz-Content-Sha256 query parameter, which upload
// targets require. expires is clamped to [1s, MaxPresignExpiry].
func PresignURL(method string, u *url.URL, creds Credentials, now time.Time, expires time.Duration, unsignedBody bool) (*url.URL, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if expires < time.Second {
		expires = time.Second
	}
	if expires > MaxPresignExpiry {
		expires = MaxPresignExpiry
	}

	now = now.UTC()
	amzDate := now.Format(timeFormat)
	dateStamp := now.Format(dateFormat)
	scope := credentialScope(dateStamp, creds)

	q := u.Query()
	q.Set("X-Amz-Algorithm", algorithm)
	q.Set("X-Amz-Credential", creds.AccessKeyID+"/"+scope)
	q.Set("X-Amz-Date", amzDate)
	q.Set("X-Amz-Expires", strconv.Itoa(int(expires/time.Second)))
	q.Set("X-Amz-SignedHeaders", "host")
	if unsignedBody {
		q.Set("X-Amz-Content-Sha256", UnsignedPayload)
	}

	encodedQuery := canonicalQuery(q)
	canonicalReq := strings.Join([]string{
		method,
		canonicalPath(u),
		encodedQuery,
		"host:" + u.Host + "\n",
		"host",
		UnsignedPayload,
	}, "\n")

	signature := sign(canonicalReq, amzDate, scope, dateStamp, creds)

	signed := *u
	signed.RawQuery = encodedQuery + "&X-Amz-Signature=" + signature
	return &signed, nil
}

// sign hashes the canonical request, builds the string to sign, derives
// the signing key, and returns the hex signature.
func sign(canonicalReq, amzDate, scope, dateStamp string, creds Credentials) string {
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		scope,
		HashPayload([]byte(canonicalReq)),
	}, "\n")
	key := deriveKey(creds.SecretAccessKey, dateStamp, creds.Region, creds.service())
	return hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))
}

func credentialScope(dateStamp string, creds Credentials) string {
	return strings.Join([]string{dateStamp, creds.Region, creds.service(), requestSuffix}, "/")
}

// deriveKey runs the SigV4 key-derivation chain:
// HMAC("AWS4"+secret, date) -> region -> service -> "aws4_request".
func deriveKey(secret, dateStamp, region, service string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(service))
	return hmacSHA256(k, []byte(requestSuffix))
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// canonicalPath returns the once-encoded canonical URI: every path
// segment percent-encoded, slashes preserved.
func canonicalPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return EncodePath(u.Path)
}

// canonicalHeaders renders the sorted canonical header block (trailing
// newline included) and the matching SignedHeaders list. The Host
// header is always signed.
func canonicalHeaders(req *http.Request) (block, signedHeaders string) {
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	entries := map[string]string{"host": strings.TrimSpace(host)}
	for name, values := range req.Header {
		trimmed := make([]string, len(values))
		for i, v := range values {
			// Trim and collapse internal runs of spaces.
			trimmed[i] = strings.Join(strings.Fields(v), " ")
		}
		entries[strings.ToLower(name)] = strings.Join(trimmed, ",")
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(entries[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// canonicalQuery renders the query parameters sorted by encoded key
// then value, each percent-encoded per RFC 3986.
func canonicalQuery(q url.Values) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(q))
	for key, values := range q {
		ek := encodeRFC3986(key, true)
		for _, v := range values {
			pairs = append(pairs, pair{k: ek, v: encodeRFC3986(v, true)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return strings.Join(parts, "&")
}

// EncodePath percent-encodes a URL path for the canonical request,
// leaving slashes intact. Callers building request URLs should store
// the result in URL.RawPath so the wire path matches the signed one.
func EncodePath(p string) string {
	return encodeRFC3986(p, false)
}

// encodeRFC3986 percent-encodes every byte outside the RFC 3986
// unreserved set, with uppercase hex digits. Spaces become %20, never
// "+".
func encodeRFC3986(s string, encodeSlash bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
