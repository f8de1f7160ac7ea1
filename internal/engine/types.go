package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine/batch"
)

// Target is one transfer awaiting execution. Amount is in the mint's base
// units. Targets are passed by value and never modified by the engine.
type Target struct {
	Destination string `json:"destination"`
	Mint        string `json:"mint"`
	Amount      uint64 `json:"amount"`
	// SourceAccount is an optional token account owned by the signer. When
	// empty the signer's associated token account is used.
	SourceAccount string `json:"sourceAccount,omitempty"`
	IsNFT         bool   `json:"isNFT,omitempty"`
	// CloseSource closes the emptied source account after an NFT transfer.
	CloseSource bool `json:"closeSource,omitempty"`
	// Holdings is the number of NFTs that produced Amount in a per-NFT airdrop.
	Holdings int `json:"holdings,omitempty"`
}

// Request converts the target into the request handed to a Transferer.
func (t Target) Request() TransferRequest {
	return TransferRequest{
		Destination:   t.Destination,
		Mint:          t.Mint,
		Amount:        t.Amount,
		SourceAccount: t.SourceAccount,
		IsNFT:         t.IsNFT,
		CloseSource:   t.CloseSource,
	}
}

// Status is the result kind of a single transfer attempt.
type Status int

// Outcome statuses.
const (
	StatusSuccess Status = iota
	StatusFailure
	// StatusSkipped means the destination already held the amount; no transfer was sent.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of one attempt for one target. Index is the
// target's position in the pass input.
type Outcome struct {
	Index  int
	Target Target
	Status Status
	TxID   string
	Reason string
}

// PassKind distinguishes a first pass over an input list from a retry pass
// over a persisted failure list.
type PassKind string

// Pass kinds.
const (
	PassFirst PassKind = "first"
	PassRetry PassKind = "retry"
)

// Pass routes the artifacts of one engine run. Empty transcript paths
// disable that transcript; FailureListPath is required.
type Pass struct {
	Kind                  PassKind
	Name                  string
	FailureListPath       string
	SuccessTranscriptPath string
	FailureTranscriptPath string
}

// TokenPass writes artifacts of a fungible token airdrop.
func TokenPass(l config.LogFiles) Pass {
	return Pass{
		Kind:                  PassFirst,
		Name:                  "airdrop-token",
		FailureListPath:       l.TransferErrorJSON(),
		SuccessTranscriptPath: l.TokenTransferTxt(),
		FailureTranscriptPath: l.TokenTransferErrorsTxt(),
	}
}

// TokenPerNFTPass writes artifacts of a token-per-NFT-holding airdrop.
func TokenPerNFTPass(l config.LogFiles) Pass {
	return Pass{
		Kind:                  PassFirst,
		Name:                  "airdrop-token-per-nft",
		FailureListPath:       l.TransferErrorJSON(),
		SuccessTranscriptPath: l.TokenTransferNftTxt(),
		FailureTranscriptPath: l.TokenTransferNftErrorsTxt(),
	}
}

// NFTPass writes artifacts of an NFT distribution.
func NFTPass(l config.LogFiles) Pass {
	return Pass{
		Kind:                  PassFirst,
		Name:                  "airdrop-nft",
		FailureListPath:       l.TransferErrorJSON(),
		SuccessTranscriptPath: l.TransferNftTxt(),
		FailureTranscriptPath: l.TransferNftErrorsTxt(),
	}
}

// RetryPass writes artifacts of a retry pass. Its failure list is separate
// from the first-pass list.
func RetryPass(l config.LogFiles) Pass {
	return Pass{
		Kind:                  PassRetry,
		Name:                  "retry-errors",
		FailureListPath:       l.RetryTransferErrorJSON(),
		SuccessTranscriptPath: l.RetryTransferTxt(),
		FailureTranscriptPath: l.RetryTransferErrorTxt(),
	}
}

// Report summarizes a pass. Outcomes are in input order.
type Report struct {
	RunID     string
	Pass      Pass
	Outcomes  []Outcome
	Batches   int
	Succeeded int
	Failed    int
	Skipped   int
	// FailureListSize is the number of records in the failure list after the
	// pass appended to it; zero when the pass had no failures.
	FailureListSize int
	Duration        time.Duration
}

// Failures returns the failed outcomes in input order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailure {
			out = append(out, o)
		}
	}
	return out
}

// TransferRequest is everything a Transferer needs for one transfer.
type TransferRequest struct {
	Destination   string
	Mint          string
	Amount        uint64
	SourceAccount string
	IsNFT         bool
	CloseSource   bool
}

// Transferer constructs, signs, submits and confirms one transfer and
// returns its transaction ID. It is called exactly once per attempt.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
}

// BalanceReader returns the amount of mint held by owner, in base units.
// exists is false when owner has no token account for mint.
type BalanceReader interface {
	Balance(ctx context.Context, owner, mint string) (amount uint64, exists bool, err error)
}

// FailureSink persists failure records, returning the list size after the append.
type FailureSink interface {
	Append(ctx context.Context, records []config.FailureRecord) (int, error)
}

// SinkOpener returns the FailureSink backing the given failure list path.
type SinkOpener func(path string) (FailureSink, error)

// OpenFailureStore is the default SinkOpener, backed by config.FailureStore.
func OpenFailureStore(path string) (FailureSink, error) {
	return config.NewFailureStore(path)
}

// Options configures an Engine.
type Options struct {
	// BatchSize bounds the number of concurrent transfers. Required, 1..1000.
	BatchSize int
	// Transferer performs transfers. Required.
	Transferer Transferer
	// BalanceReader enables the pre-transfer balance check. Optional.
	BalanceReader BalanceReader
	// OpenSink opens the failure list of a pass. Defaults to OpenFailureStore.
	OpenSink SinkOpener
	// SkipFunded skips destinations already holding the target amount.
	// Ignored when BalanceReader is nil.
	SkipFunded bool
	// OverrideBalanceCheck transfers even when the destination is funded.
	OverrideBalanceCheck bool
	// Progress observes settled items and batches. It may be called from
	// several goroutines at once.
	Progress batch.ProgressCallback
	// Stop, once closed, ends the pass before the next batch. Transfers
	// already in flight keep their context and settle normally. Optional.
	Stop <-chan struct{}
	// TxURL renders a transaction ID for the success transcript. Optional.
	TxURL func(txID string) string
}
