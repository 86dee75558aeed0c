package objstore

import (
	"context"
	"io"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
)

// BatchItem is one upload in a batch.
type BatchItem struct {
	Key     string
	Body    []byte
	Options PutOptions
}

// BatchResult is the settled outcome of one batch item.
type BatchResult struct {
	Key     string
	Success bool
	Err     error
}

// Report summarizes a finished batch. Results preserve the input order
// of the items regardless of completion timing.
type Report struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
}

// WriteJSON serializes the report for audit trails.
func (r Report) WriteJSON(w io.Writer) error {
	type itemView struct {
		Key     string `json:"key"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	view := struct {
		Succeeded int        `json:"succeeded"`
		Failed    int        `json:"failed"`
		Results   []itemView `json:"results"`
	}{
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Results:   make([]itemView, len(r.Results)),
	}
	for i, res := range r.Results {
		view.Results[i] = itemView{Key: res.Key, Success: res.Success}
		if res.Err != nil {
			view.Results[i].Error = res.Err.Error()
		}
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(view)
}

// PutBatch uploads items with at most concurrency in flight, processing
// them in fixed windows: the next window starts only once every item in
// the current one has settled. This trades throughput for bounded
// resource use and simple accounting; no worker pool outlives the call.
//
// One item's failure never aborts the batch. Each outcome is captured
// independently, and the returned results are in input order. If ctx is
// canceled, items not yet started are recorded as failed with the
// context's error; items already committed remotely stay committed, so
// callers needing certainty must re-verify with GetObject or
// ListObjects.
func (c *Client) PutBatch(ctx context.Context, items []BatchItem, concurrency int) Report {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(items))

	for start := 0; start < len(items); start += concurrency {
		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}

		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = BatchResult{Key: items[i].Key, Err: err}
			}
			break
		}

		// Only the active window's goroutines write into results, each
		// at its own index, so no locking is needed beyond the window
		// barrier.
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				item := items[i]
				_, err := c.PutObject(ctx, item.Key, item.Body, item.Options)
				results[i] = BatchResult{
					Key:     item.Key,
					Success: err == nil,
					Err:     err,
				}
				return nil
			})
		}
		g.Wait()
	}

	report := Report{Results: results}
	for _, r := range results {
		if r.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	c.log.Debug().Int("items", len(items)).Int("concurrency", concurrency).
		Int("succeeded", report.Succeeded).Int("failed", report.Failed).
		Msg("batch settled")
	return report
}
