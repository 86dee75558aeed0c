// Package listxml decodes ListObjectsV2-style XML responses.
//
// Decoding is tolerant of malformed entries: a Contents element missing
// any of its required fields (Key, Size, ETag, LastModified) is dropped
// and counted rather than failing the whole page. Continuation tokens
// are opaque and passed through untouched.
package listxml

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"
)

// Object is a single listing entry.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Page is one decoded page of a listing.
type Page struct {
	Objects []Object

	// NextContinuationToken is the opaque cursor for the next page, or
	// "" when the response carried none.
	NextContinuationToken string

	// IsTruncated reports whether the provider indicated more results.
	IsTruncated bool

	// Skipped counts Contents entries dropped for missing or malformed
	// required fields.
	Skipped int
}

type listBucketResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	IsTruncated           string         `xml:"IsTruncated"`
	NextContinuationToken *string        `xml:"NextContinuationToken"`
	Contents              []contentsElem `xml:"Contents"`
}

// All fields are pointers so a missing element is distinguishable from
// an empty one, and Size stays a string so one bad entry cannot abort
// the decode of the whole document.
type contentsElem struct {
	Key          *string `xml:"Key"`
	Size         *string `xml:"Size"`
	ETag         *string `xml:"ETag"`
	LastModified *string `xml:"LastModified"`
}

// Parse decodes a ListBucketResult document.
func Parse(r io.Reader) (Page, error) {
	var doc listBucketResult
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Page{}, err
	}

	page := Page{
		IsTruncated: strings.Contains(doc.IsTruncated, "true"),
	}
	if doc.NextContinuationToken != nil {
		page.NextContinuationToken = *doc.NextContinuationToken
	}

	for _, c := range doc.Contents {
		obj, ok := decodeEntry(c)
		if !ok {
			page.Skipped++
			continue
		}
		page.Objects = append(page.Objects, obj)
	}
	return page, nil
}

func decodeEntry(c contentsElem) (Object, bool) {
	if c.Key == nil || c.Size == nil || c.ETag == nil || c.LastModified == nil {
		return Object{}, false
	}
	if *c.Key == "" {
		return Object{}, false
	}

	size, err := strconv.ParseInt(strings.TrimSpace(*c.Size), 10, 64)
	if err != nil {
		return Object{}, false
	}
	modified, err := time.Parse(time.RFC3339, strings.TrimSpace(*c.LastModified))
	if err != nil {
		return Object{}, false
	}

	return Object{
		Key:          *c.Key,
		Size:         size,
		ETag:         strings.Trim(*c.ETag, `"`),
		LastModified: modified,
	}, true
}
