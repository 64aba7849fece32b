package repo

import (
	"context"

	"mealscan/model"
)

// BatchStore is the slice of ParticipantStore the BatchWriter needs.
type BatchStore interface {
	CreateBatch(ctx context.Context, ps []*model.Participant) (int, error)
}

// DefaultBatchSize stays under the Firestore 500-writes-per-batch ceiling.
const DefaultBatchSize = 450

// BatchWriter buffers participant records and flushes them in bounded
// write batches. A flush failure surfaces the records already committed
// instead of discarding the counts.
type BatchWriter struct {
	store   BatchStore
	size    int
	buf     []*model.Participant
	written int
	failed  int
}

// NewBatchWriter returns a writer flushing every size records. A size
// of zero or less falls back to DefaultBatchSize.
func NewBatchWriter(store BatchStore, size int) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{store: store, size: size}
}

// Add buffers one record, flushing when the batch is full.
func (bw *BatchWriter) Add(ctx context.Context, p *model.Participant) error {
	bw.buf = append(bw.buf, p)
	if len(bw.buf) >= bw.size {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush commits the buffered records.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	if len(bw.buf) == 0 {
		return nil
	}
	n, err := bw.store.CreateBatch(ctx, bw.buf)
	bw.written += n
	if err != nil {
		bw.failed += len(bw.buf) - n
		bw.buf = bw.buf[:0]
		return err
	}
	bw.buf = bw.buf[:0]
	return nil
}

// Report returns the committed and failed record counts so far.
func (bw *BatchWriter) Report() (written, failed int) {
	return bw.written, bw.failed
}
