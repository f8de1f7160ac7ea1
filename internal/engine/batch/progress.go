package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks the progress of batch processing operations.
// All methods are safe for concurrent use; fanned-out items report through it
// from their own goroutines.
type Progress struct {
	totalItems       int
	processedItems   int
	totalBatches     int
	processedBatches int
	batchSize        int
	startTime        time.Time
	lastUpdateTime   time.Time

	mu sync.RWMutex
}

// NewProgress creates a new progress tracker.
func NewProgress(totalItems, totalBatches, batchSize int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		totalBatches:   totalBatches,
		batchSize:      batchSize,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// AddItems records n settled items.
func (p *Progress) AddItems(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems += n
	p.lastUpdateTime = time.Now()
}

// CompleteBatch records one fully settled batch.
func (p *Progress) CompleteBatch() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedBatches++
	p.lastUpdateTime = time.Now()
}

// EstimatedTimeRemaining estimates the remaining processing time based on current progress.
// Returns 0 if no items have been processed yet.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.remainingUnsafe()
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:       p.totalItems,
		ProcessedItems:   p.processedItems,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		BatchSize:        p.batchSize,
		StartTime:        p.startTime,
		LastUpdateTime:   p.lastUpdateTime,
		PercentComplete:  p.percentCompleteUnsafe(),
		ElapsedTime:      time.Since(p.startTime),
		ItemsPerSecond:   p.itemsPerSecondUnsafe(),
		Remaining:        p.remainingUnsafe(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	BatchSize        int
	StartTime        time.Time
	LastUpdateTime   time.Time
	PercentComplete  float64
	ElapsedTime      time.Duration
	ItemsPerSecond   float64
	// Remaining is the estimated time to settle the rest; zero until an item settles.
	Remaining time.Duration
}

// Ratio returns the completed fraction in [0, 1].
func (s ProgressSnapshot) Ratio() float64 {
	if s.TotalItems == 0 {
		return 0
	}
	return float64(s.ProcessedItems) / float64(s.TotalItems)
}

// percentCompleteUnsafe calculates percent complete without locking.
// Should only be called when already holding the lock.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.totalItems == 0 {
		return 0
	}
	return (float64(p.processedItems) / float64(p.totalItems)) * percentMultiplier
}

// itemsPerSecondUnsafe calculates items per second without locking.
// Should only be called when already holding the lock.
func (p *Progress) itemsPerSecondUnsafe() float64 {
	elapsed := time.Since(p.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.processedItems) / elapsed
}

func (p *Progress) remainingUnsafe() time.Duration {
	if p.processedItems == 0 {
		return 0
	}
	avgTimePerItem := time.Since(p.startTime) / time.Duration(p.processedItems)
	return avgTimePerItem * time.Duration(p.totalItems-p.processedItems)
}
