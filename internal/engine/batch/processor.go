package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
	// ErrStopped is returned when the stop channel closed between batches.
	// It matches context.Canceled.
	ErrStopped = fmt.Errorf("stopped between batches: %w", context.Canceled)
)

// ItemCallback handles one item of a fanned-out batch. index is the item's
// position in the full input, not in the batch. Item callbacks cannot fail the
// batch; they record their own result.
type ItemCallback[T any] func(ctx context.Context, item T, index int)

// ProgressCallback is an optional callback invoked as items settle.
type ProgressCallback func(snapshot ProgressSnapshot)

// Processor splits items into fixed-size batches and runs them in order.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback
	stop       <-chan struct{}
}

// NewProcessor creates a new batch processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &Processor[T]{
		batchSize: batchSize,
	}, nil
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// WithStop sets a channel that, once closed, keeps FanOut from starting
// another batch. Unlike ctx cancellation it never reaches the items already
// in flight.
func (p *Processor[T]) WithStop(stop <-chan struct{}) *Processor[T] {
	p.stop = stop
	return p
}

// FanOut runs every item of a batch concurrently and waits for all of them to
// settle before starting the next batch, so at most batchSize callbacks are
// in flight at any time.
//
// It returns the number of items that were started. When ctx is done between
// batches, FanOut stops and returns ctx.Err(); when the stop channel is closed
// it returns ErrStopped. Either way items at positions >= started were never
// handed to the callback.
func (p *Processor[T]) FanOut(ctx context.Context, items []T, callback ItemCallback[T]) (int, error) {
	if callback == nil {
		return 0, ErrNilCallback
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds), p.batchSize)

	started := 0
	for _, b := range bounds {
		if err := ctx.Err(); err != nil {
			return started, err
		}
		if p.stopped() {
			return started, ErrStopped
		}

		var g errgroup.Group
		g.SetLimit(p.batchSize)
		for i := b[0]; i < b[1]; i++ {
			i := i
			item := items[i]
			g.Go(func() error {
				callback(ctx, item, i)
				progress.AddItems(1)
				p.notify(progress)
				return nil
			})
		}
		_ = g.Wait()
		started = b[1]

		progress.CompleteBatch()
		p.notify(progress)
	}

	return started, nil
}

// GetBatchSize returns the configured batch size.
func (p *Processor[T]) GetBatchSize() int {
	return p.batchSize
}

// CalculateBatches returns the batch boundaries for the given items.
// Returns a slice of [start, end) index pairs.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := Count(totalItems, p.batchSize)
	batches := make([][2]int, totalBatches)

	for i := 0; i < totalBatches; i++ {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		batches[i] = [2]int{start, end}
	}

	return batches
}

// Count returns ceil(totalItems / batchSize), or 0 for a non-positive batch size.
func Count(totalItems, batchSize int) int {
	if batchSize <= 0 || totalItems <= 0 {
		return 0
	}
	batches := totalItems / batchSize
	if totalItems%batchSize > 0 {
		batches++
	}
	return batches
}

func (p *Processor[T]) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Processor[T]) notify(progress *Progress) {
	if p.onProgress != nil {
		p.onProgress(progress.Snapshot())
	}
}
