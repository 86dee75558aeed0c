package objstore

import (
	"context"
	"fmt"
)

// maxListPages caps how many pages a listing walk will follow before
// concluding the provider is never going to terminate pagination.
const maxListPages = 10000

// ObjectIterator provides sequential access to the objects under a
// prefix, fetching listing pages on demand.
//
// Contract:
//   - Next() MUST return false after exhaustion or after Close()
//   - Close() MUST be idempotent
//   - Err() MAY be called after exhaustion or close
//   - Continuation tokens are forwarded to the provider unmodified
//
// A provider that keeps answering IsTruncated=true is cut off after
// maxListPages pages and Err() reports ErrPaginationLimit.
type ObjectIterator struct {
	ctx     context.Context
	client  *Client
	opts    ListOptions
	page    ListPage
	index   int
	pages   int
	skipped int
	started bool
	done    bool
	closed  bool
	err     error
}

// Objects returns an iterator over every object whose key starts with
// prefix. pageSize caps the page size per request; zero means the
// provider default.
func (c *Client) Objects(ctx context.Context, prefix string, pageSize int) *ObjectIterator {
	return &ObjectIterator{
		ctx:    ctx,
		client: c,
		opts:   ListOptions{Prefix: prefix, MaxKeys: pageSize},
		index:  -1, // Start before the first element
	}
}

// Next advances to the next object, fetching the next listing page when
// the current one is spent. Returns false when the listing is
// exhausted, an error occurred, or the iterator is closed.
func (it *ObjectIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}

	for {
		it.index++
		if it.index < len(it.page.Objects) {
			return true
		}
		if !it.fetchNextPage() {
			return false
		}
	}
}

// fetchNextPage pulls the following page, honoring the page cap.
// Returns false when iteration should stop.
func (it *ObjectIterator) fetchNextPage() bool {
	if it.started {
		if !it.page.IsTruncated {
			it.done = true
			return false
		}
		if it.pages >= maxListPages {
			it.err = fmt.Errorf("%w: gave up after %d pages", ErrPaginationLimit, it.pages)
			return false
		}
		it.opts.ContinuationToken = it.page.NextContinuationToken
	}
	if it.done {
		return false
	}

	page, err := it.client.ListObjects(it.ctx, it.opts)
	if err != nil {
		it.err = err
		return false
	}

	it.started = true
	it.pages++
	it.skipped += page.Skipped
	it.page = page
	it.index = -1
	return true
}

// Summary returns the current object. Only valid after Next() returned
// true.
func (it *ObjectIterator) Summary() ObjectSummary {
	return it.page.Objects[it.index]
}

// Err returns the error that stopped iteration, if any.
func (it *ObjectIterator) Err() error {
	return it.err
}

// Pages reports how many listing pages have been fetched so far.
func (it *ObjectIterator) Pages() int {
	return it.pages
}

// Skipped reports how many malformed listing entries were dropped
// across the fetched pages.
func (it *ObjectIterator) Skipped() int {
	return it.skipped
}

// Close stops the iterator. Safe to call multiple times.
func (it *ObjectIterator) Close() error {
	it.closed = true
	return nil
}

// Stats walks the full listing under prefix and aggregates object count
// and total size. The walk follows continuation tokens until the
// provider reports a final page, bounded by maxListPages.
func (c *Client) Stats(ctx context.Context, prefix string) (StorageStats, error) {
	it := c.Objects(ctx, prefix, maxKeysLimit)
	defer it.Close()

	var stats StorageStats
	for it.Next() {
		stats.ObjectCount++
		stats.TotalBytes += it.Summary().Size
	}
	if err := it.Err(); err != nil {
		return StorageStats{}, err
	}

	stats.Pages = it.Pages()
	stats.SkippedEntries = it.Skipped()

	c.log.Debug().Str("prefix", prefix).
		Int("objects", stats.ObjectCount).Int64("bytes", stats.TotalBytes).
		Int("pages", stats.Pages).Msg("storage stats aggregated")
	return stats, nil
}
