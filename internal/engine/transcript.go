package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rshade/splairdrop/internal/config"
)

// transcript appends human-readable lines to the success and failure
// transcripts of a pass. An empty path disables that side.
type transcript struct {
	mu          sync.Mutex
	successPath string
	failurePath string
}

func newTranscript(successPath, failurePath string) *transcript {
	return &transcript{successPath: successPath, failurePath: failurePath}
}

func (t *transcript) success(line string) error {
	return t.append(t.successPath, []string{line})
}

func (t *transcript) failures(lines []string) error {
	return t.append(t.failurePath, lines)
}

func (t *transcript) append(path string, lines []string) error {
	if path == "" || len(lines) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening transcript %s: %w", path, err)
	}
	_, writeErr := f.WriteString(strings.Join(lines, "\n") + "\n")
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("writing transcript %s: %w", path, writeErr)
	}
	return closeErr
}

func successLine(t Target, txID string, txURL func(string) string) string {
	link := txID
	if txURL != nil {
		link = txURL(txID)
	}
	if t.IsNFT {
		return fmt.Sprintf("Sent NFT %s to %s. %s", t.Mint, t.Destination, link)
	}
	return fmt.Sprintf("Sent %d of %s to %s. %s", t.Amount, t.Mint, t.Destination, link)
}

func failureMessage(t Target) string {
	if t.IsNFT {
		return fmt.Sprintf("ERROR: Failed to send NFT %s to %s.", t.Mint, t.Destination)
	}
	return fmt.Sprintf("ERROR: Failed to send %d of %s to %s.", t.Amount, t.Mint, t.Destination)
}

func failureLine(o Outcome) string {
	return failureMessage(o.Target) + " " + o.Reason
}

// RecordFromOutcome converts a failed outcome into its persisted form. RunID
// and FailedAt are left for the caller.
func RecordFromOutcome(o Outcome) config.FailureRecord {
	return config.FailureRecord{
		Wallet:         o.Target.Destination,
		Mint:           o.Target.Mint,
		TransferAmount: o.Target.Amount,
		Holdings:       o.Target.Holdings,
		Message:        failureMessage(o.Target),
		Error:          o.Reason,
		IsNFT:          o.Target.IsNFT,
		CloseSource:    o.Target.CloseSource,
	}
}

// TargetsFromFailures turns a persisted failure list back into targets, in
// list order. Amounts are already in base units. NFT records keep their
// close-account step so a retried transfer still reclaims the source rent.
func TargetsFromFailures(records []config.FailureRecord) []Target {
	targets := make([]Target, 0, len(records))
	for _, r := range records {
		targets = append(targets, Target{
			Destination: r.Wallet,
			Mint:        r.Mint,
			Amount:      r.TransferAmount,
			IsNFT:       r.IsNFT,
			CloseSource: r.IsNFT && r.CloseSource,
			Holdings:    r.Holdings,
		})
	}
	return targets
}
