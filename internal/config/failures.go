package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rshade/splairdrop/internal/logging"
)

// ErrStoreCorrupted indicates the failure list file exists but is not a valid
// JSON list. Appending treats such a file as empty.
var ErrStoreCorrupted = errors.New("failure list file corrupted")

// FailureRecord is one failed transfer attempt, persisted so a later retry
// pass can replay it. TransferAmount is always in the mint's base units.
type FailureRecord struct {
	Wallet         string    `json:"wallet"`
	Mint           string    `json:"mint"`
	TransferAmount uint64    `json:"transferAmount"`
	Holdings       int       `json:"holdings,omitempty"`
	Message        string    `json:"message"`
	Error          string    `json:"error"`
	IsNFT          bool      `json:"isNFT,omitempty"`
	CloseSource    bool      `json:"closeSource,omitempty"`
	RunID          string    `json:"runId,omitempty"`
	FailedAt       time.Time `json:"failedAt,omitzero"`
}

// Lockfile timing. A lock whose owner cannot be identified is treated as
// abandoned once it is older than defaultStaleLockAge.
const (
	defaultStaleLockAge = 30 * time.Second
	lockRetryDelay      = 100 * time.Millisecond
)

// FailureStore is a JSON list of FailureRecords on disk.
//
// Every Append is a read-modify-write of the whole list, replaced atomically
// through a temp file. A lockfile keeps two splairdrop processes from
// interleaving their writes.
type FailureStore struct {
	mu       sync.Mutex
	filePath string
	staleAge time.Duration
}

// NewFailureStore creates a store backed by filePath.
func NewFailureStore(filePath string) (*FailureStore, error) {
	if filePath == "" {
		return nil, errors.New("failure list path cannot be empty")
	}
	return &FailureStore{filePath: filePath, staleAge: defaultStaleLockAge}, nil
}

// FilePath returns the file path of the failure list.
func (s *FailureStore) FilePath() string {
	return s.filePath
}

// lockFilePath returns the path to the lockfile for cross-process coordination.
func (s *FailureStore) lockFilePath() string {
	return s.filePath + ".lock"
}

// acquireFileLock acquires a cross-process advisory lockfile and returns a
// function that releases it.
//
// A lock left by a process that no longer runs is taken over at once. A lock
// without a readable owner is taken over once it is older than staleAge, so
// the wait is bounded by staleAge plus a couple of retry delays. A lock held
// by a live process is never broken.
func (s *FailureStore) acquireFileLock(ctx context.Context) (func(), error) {
	lockPath := s.lockFilePath()

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	wait := s.staleAge + 2*lockRetryDelay
	deadline := time.Now().Add(wait)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lockfile: %w", err)
		}

		if removeStaleLock(lockPath, s.staleAge) {
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("could not acquire lock on %s within %s", lockPath, wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

// removeStaleLock removes the lock at lockPath when its owner is gone and
// reports whether it did. An owner that cannot be read counts as gone only
// after staleAge.
func removeStaleLock(lockPath string, staleAge time.Duration) bool {
	info, statErr := os.Stat(lockPath)
	if statErr != nil {
		return false
	}

	if pid, ok := lockOwner(lockPath); ok {
		if processAlive(pid) {
			return false
		}
	} else if time.Since(info.ModTime()) <= staleAge {
		// The owner may be between creating the file and writing its PID.
		return false
	}

	_ = os.Remove(lockPath)
	return true
}

// lockOwner reads the PID written into a lockfile.
func lockOwner(lockPath string) (int, bool) {
	pidData, readErr := os.ReadFile(lockPath)
	if readErr != nil || len(pidData) == 0 {
		return 0, false
	}
	var pid int
	if _, scanErr := fmt.Sscanf(string(pidData), "%d", &pid); scanErr != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether a process with the given PID exists. A
// process owned by another user answers EPERM and still counts as alive.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 tests process existence without actually sending a signal
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Load reads the failure list. A missing or empty file yields an empty list.
// An unparsable file yields an empty list together with ErrStoreCorrupted.
func (s *FailureStore) Load() ([]FailureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked()
}

func (s *FailureStore) readLocked() ([]FailureRecord, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []FailureRecord{}, nil
		}
		return nil, fmt.Errorf("reading failure list: %w", err)
	}
	if len(data) == 0 {
		return []FailureRecord{}, nil
	}

	var records []FailureRecord
	if unmarshalErr := json.Unmarshal(data, &records); unmarshalErr != nil {
		return []FailureRecord{}, fmt.Errorf("%w: %w", ErrStoreCorrupted, unmarshalErr)
	}
	if records == nil {
		records = []FailureRecord{}
	}
	return records, nil
}

// Append adds records to the end of the list and rewrites the file. A corrupt
// existing file is replaced rather than aborting the run. It returns the
// number of records in the file afterwards.
func (s *FailureStore) Append(ctx context.Context, records []FailureRecord) (int, error) {
	unlock, lockErr := s.acquireFileLock(ctx)
	if lockErr != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		if !errors.Is(err, ErrStoreCorrupted) {
			return 0, err
		}
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("component", "config").
			Str("operation", "append_failures").
			Str("path", s.filePath).
			Err(err).
			Msg("existing failure list is unreadable, starting a new one")
	}

	merged := make([]FailureRecord, 0, len(existing)+len(records))
	merged = append(merged, existing...)
	merged = append(merged, records...)

	if writeErr := s.writeLocked(merged); writeErr != nil {
		return 0, writeErr
	}
	return len(merged), nil
}

// Reset replaces the file with an empty list.
func (s *FailureStore) Reset() error {
	unlock, lockErr := s.acquireFileLock(context.Background())
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked([]FailureRecord{})
}

// Count returns the number of records currently on disk; unreadable files count as zero.
func (s *FailureStore) Count() int {
	records, _ := s.Load()
	return len(records)
}

// writeLocked writes records atomically via a temp file. Must be called with mu held.
func (s *FailureStore) writeLocked(records []FailureRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling failure list: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
		return fmt.Errorf("creating failure list directory: %w", mkdirErr)
	}

	tmpPath := s.filePath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing failure list temp file: %w", writeErr)
	}

	if renameErr := os.Rename(tmpPath, s.filePath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming failure list temp file: %w", renameErr)
	}

	return nil
}
