package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

// Artifact file names inside LogFiles.Dir.
const (
	transferErrorJSON         = "transfererror.json"
	retryTransferErrorJSON    = "retrytransfererror.json"
	tokenTransferTxt          = "tokentransfer.txt"
	tokenTransferErrorsTxt    = "tokentransfererrors.txt"
	tokenTransferNftTxt       = "tokentransfernft.txt"
	tokenTransferNftErrorsTxt = "tokentransfernfterrors.txt"
	transferNftTxt            = "transfernft.txt"
	transferNftErrorsTxt      = "transfernfterrors.txt"
	retryTransferTxt          = "retrytransfer.txt"
	retryTransferErrorTxt     = "retrytransfererror.txt"
)

// LogFiles is the directory holding a run's artifacts: human-readable
// transcripts and the machine-readable failure lists.
type LogFiles struct {
	Dir string `yaml:"dir"`
}

func (l LogFiles) path(name string) string {
	return filepath.Join(l.Dir, name)
}

// TransferErrorJSON is the first-pass failure list.
func (l LogFiles) TransferErrorJSON() string { return l.path(transferErrorJSON) }

// RetryTransferErrorJSON is the retry-pass failure list.
func (l LogFiles) RetryTransferErrorJSON() string { return l.path(retryTransferErrorJSON) }

// TokenTransferTxt is the token airdrop success transcript.
func (l LogFiles) TokenTransferTxt() string { return l.path(tokenTransferTxt) }

// TokenTransferErrorsTxt is the token airdrop failure transcript.
func (l LogFiles) TokenTransferErrorsTxt() string { return l.path(tokenTransferErrorsTxt) }

// TokenTransferNftTxt is the token-per-NFT success transcript.
func (l LogFiles) TokenTransferNftTxt() string { return l.path(tokenTransferNftTxt) }

// TokenTransferNftErrorsTxt is the token-per-NFT failure transcript.
func (l LogFiles) TokenTransferNftErrorsTxt() string { return l.path(tokenTransferNftErrorsTxt) }

// TransferNftTxt is the NFT airdrop success transcript.
func (l LogFiles) TransferNftTxt() string { return l.path(transferNftTxt) }

// TransferNftErrorsTxt is the NFT airdrop failure transcript.
func (l LogFiles) TransferNftErrorsTxt() string { return l.path(transferNftErrorsTxt) }

// RetryTransferTxt is the retry success transcript.
func (l LogFiles) RetryTransferTxt() string { return l.path(retryTransferTxt) }

// RetryTransferErrorTxt is the retry failure transcript.
func (l LogFiles) RetryTransferErrorTxt() string { return l.path(retryTransferErrorTxt) }

// Ensure creates the artifact directory.
func (l LogFiles) Ensure() error {
	if err := os.MkdirAll(l.Dir, 0o750); err != nil {
		return fmt.Errorf("creating log directory %q: %w", l.Dir, err)
	}
	return nil
}

// transcripts lists every transcript file.
func (l LogFiles) transcripts() []string {
	return []string{
		l.TokenTransferTxt(), l.TokenTransferErrorsTxt(),
		l.TokenTransferNftTxt(), l.TokenTransferNftErrorsTxt(),
		l.TransferNftTxt(), l.TransferNftErrorsTxt(),
		l.RetryTransferTxt(), l.RetryTransferErrorTxt(),
	}
}

// Reset truncates the transcripts. When clearFailures is set, both failure
// lists are also reset to an empty list; otherwise they keep accumulating.
func (l LogFiles) Reset(clearFailures bool) error {
	if err := l.Ensure(); err != nil {
		return err
	}
	var errs []error
	for _, p := range l.transcripts() {
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			errs = append(errs, fmt.Errorf("truncating %s: %w", p, err))
		}
	}
	if clearFailures {
		for _, p := range []string{l.TransferErrorJSON(), l.RetryTransferErrorJSON()} {
			if err := os.WriteFile(p, []byte("[]"), 0o600); err != nil {
				errs = append(errs, fmt.Errorf("resetting %s: %w", p, err))
			}
		}
	}
	return errors.Join(errs...)
}

// IsRetryList reports whether path names the retry-pass failure list.
func (l LogFiles) IsRetryList(path string) bool {
	want := l.RetryTransferErrorJSON()
	a, errA := filepath.Abs(path)
	b, errB := filepath.Abs(want)
	if errA != nil || errB != nil {
		return filepath.Clean(path) == filepath.Clean(want)
	}
	return a == b
}

// ArchiveRetryList moves the retry-pass failure list to a run-unique name in
// the same directory and returns that path. A retry of the retry list reads
// the archive and writes its own failures to a fresh retry list.
func (l LogFiles) ArchiveRetryList() (string, error) {
	src := l.RetryTransferErrorJSON()
	dst := l.path(fmt.Sprintf("retrytransfererror.%s.json", ulid.Make()))
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("archiving %s: %w", src, err)
	}
	return dst, nil
}
