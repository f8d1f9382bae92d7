package supply

import (
	"context"
	"errors"
)

// FailedItem is an id that could not be processed, with the reason of its last failure.
type FailedItem struct {
	ID     int64
	Reason string
}

// BatchOutcome collects successes and failures of a batch run.
type BatchOutcome struct {
	Added  []int64
	Failed []FailedItem
}

// Merge appends other to o.
func (o *BatchOutcome) Merge(other BatchOutcome) {
	o.Added = append(o.Added, other.Added...)
	o.Failed = append(o.Failed, other.Failed...)
}

// BatchFunc processes one batch of ids as a whole.
type BatchFunc func(ctx context.Context, ids []int64) error

// Bisector retries a failed batch by splitting it in halves until the failing
// ids are isolated. A failing batch never aborts the ids around it.
type Bisector struct {
	// IsolateFailures enables splitting. When false a failed batch is reported as a whole.
	IsolateFailures bool
	// MinBatchSize is the size at which splitting stops. Values below 1 mean 1.
	MinBatchSize int
}

// Run processes ids with fn, bisecting on failure.
// Splits happen at ceil(n/2); the first half is retried before the second.
func (b Bisector) Run(ctx context.Context, ids []int64, fn BatchFunc) BatchOutcome {
	var out BatchOutcome
	b.run(ctx, ids, fn, &out)
	return out
}

func (b Bisector) run(ctx context.Context, ids []int64, fn BatchFunc, out *BatchOutcome) {
	if len(ids) == 0 {
		return
	}
	if err := ctx.Err(); err != nil {
		out.fail(ids, err)
		return
	}

	err := fn(ctx, ids)
	if err == nil {
		out.Added = append(out.Added, ids...)
		return
	}

	minSize := b.MinBatchSize
	if minSize < 1 {
		minSize = 1
	}
	if !b.IsolateFailures || len(ids) <= minSize || errors.Is(err, context.Canceled) {
		out.fail(ids, err)
		return
	}

	mid := (len(ids) + 1) / 2
	b.run(ctx, ids[:mid], fn, out)
	b.run(ctx, ids[mid:], fn, out)
}

func (o *BatchOutcome) fail(ids []int64, err error) {
	reason := "marketplace error"
	if err != nil && err.Error() != "" {
		reason = err.Error()
	}
	for _, id := range ids {
		o.Failed = append(o.Failed, FailedItem{ID: id, Reason: reason})
	}
}

// ChunkIDs splits ids into consecutive chunks of at most size.
func ChunkIDs(ids []int64, size int) [][]int64 {
	if size < 1 {
		size = len(ids)
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// UniqueIDs removes duplicate ids, keeping first occurrences.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
