package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine/batch"
	"github.com/rshade/splairdrop/internal/logging"
)

// Engine errors.
var (
	ErrNilTransferer      = errors.New("transferer cannot be nil")
	ErrMissingFailureList = errors.New("pass has no failure list path")
)

// Engine runs transfer passes: targets are split into batches, batches run
// one after another, and the targets of a batch run concurrently.
type Engine struct {
	opts      Options
	processor *batch.Processor[Target]
}

// NewEngine validates opts and returns an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Transferer == nil {
		return nil, ErrNilTransferer
	}
	processor, err := batch.NewProcessor[Target](opts.BatchSize)
	if err != nil {
		return nil, err
	}
	if opts.Progress != nil {
		processor.WithProgressCallback(opts.Progress)
	}
	if opts.Stop != nil {
		processor.WithStop(opts.Stop)
	}
	if opts.OpenSink == nil {
		opts.OpenSink = OpenFailureStore
	}
	return &Engine{opts: opts, processor: processor}, nil
}

// BatchSize returns the configured batch size.
func (e *Engine) BatchSize() int {
	return e.processor.GetBatchSize()
}

// Run executes one pass over targets and returns exactly one outcome per
// target. Individual transfer failures are recorded, persisted to the pass's
// failure list and reported; they never make Run fail.
//
// Run returns an error when the failure list cannot be written, or when ctx
// is done or Options.Stop closes before every batch ran. In the latter case
// the report is still returned and the unattempted targets are recorded as
// failures.
func (e *Engine) Run(ctx context.Context, pass Pass, targets []Target) (*Report, error) {
	if pass.FailureListPath == "" {
		return nil, ErrMissingFailureList
	}
	if pass.Kind == "" {
		pass.Kind = PassFirst
	}

	sink, err := e.opts.OpenSink(pass.FailureListPath)
	if err != nil {
		return nil, fmt.Errorf("opening failure list: %w", err)
	}

	start := time.Now()
	runID := ulid.Make().String()
	log := logging.FromContext(ctx)

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "run").
		Str("run_id", runID).
		Str("pass", string(pass.Kind)).
		Str("name", pass.Name).
		Int("targets", len(targets)).
		Int("batch_size", e.BatchSize()).
		Int("batches", batch.Count(len(targets), e.BatchSize())).
		Msg("starting transfer pass")

	tr := newTranscript(pass.SuccessTranscriptPath, pass.FailureTranscriptPath)
	outcomes := make([]Outcome, len(targets))

	started, runErr := e.processor.FanOut(ctx, targets, func(ctx context.Context, t Target, i int) {
		outcomes[i] = e.attempt(ctx, tr, i, t)
	})
	for i := started; i < len(targets); i++ {
		outcomes[i] = Outcome{
			Index:  i,
			Target: targets[i],
			Status: StatusFailure,
			Reason: fmt.Sprintf("not attempted: %v", runErr),
		}
	}

	report := &Report{
		RunID:    runID,
		Pass:     pass,
		Outcomes: outcomes,
		Batches:  batch.Count(started, e.BatchSize()),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSuccess:
			report.Succeeded++
		case StatusFailure:
			report.Failed++
		case StatusSkipped:
			report.Skipped++
		}
	}

	// Persist even when ctx is done; the failure list is the recovery path.
	persistCtx := context.WithoutCancel(ctx)
	size, persistErr := e.persistFailures(persistCtx, sink, tr, runID, report.Failures())
	report.FailureListSize = size
	report.Duration = time.Since(start)

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "run").
		Str("run_id", runID).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("batches", report.Batches).
		Dur("duration_ms", report.Duration).
		Msg("transfer pass finished")

	if persistErr != nil {
		return report, persistErr
	}
	if runErr != nil {
		return report, fmt.Errorf("pass interrupted after %d of %d targets: %w", started, len(targets), runErr)
	}
	return report, nil
}

// Retry re-runs a persisted failure list. The pass is forced to the retry
// kind; callers route its failures to a list distinct from the input list.
func (e *Engine) Retry(ctx context.Context, pass Pass, records []config.FailureRecord) (*Report, error) {
	pass.Kind = PassRetry
	return e.Run(ctx, pass, TargetsFromFailures(records))
}

// attempt performs the optional balance check and one transfer for t.
func (e *Engine) attempt(ctx context.Context, tr *transcript, index int, t Target) Outcome {
	log := logging.FromContext(ctx)
	out := Outcome{Index: index, Target: t}

	if e.checksBalance() {
		held, exists, err := e.opts.BalanceReader.Balance(ctx, t.Destination, t.Mint)
		if err != nil {
			out.Status = StatusFailure
			out.Reason = fmt.Sprintf("balance lookup: %v", err)
			log.Error().
				Ctx(ctx).
				Str("component", "engine").
				Str("operation", "balance_check").
				Str("wallet", t.Destination).
				Str("mint", t.Mint).
				Err(err).
				Msg("balance lookup failed")
			return out
		}
		if exists && held >= t.Amount {
			out.Status = StatusSkipped
			out.Reason = fmt.Sprintf("destination already holds %d (wanted %d)", held, t.Amount)
			log.Warn().
				Ctx(ctx).
				Str("component", "engine").
				Str("operation", "balance_check").
				Str("wallet", t.Destination).
				Str("mint", t.Mint).
				Uint64("balance", held).
				Uint64("amount", t.Amount).
				Msg("skipping funded destination")
			return out
		}
	}

	txID, err := e.opts.Transferer.Transfer(ctx, t.Request())
	if err != nil {
		out.Status = StatusFailure
		out.Reason = err.Error()
		log.Error().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "transfer").
			Str("wallet", t.Destination).
			Str("mint", t.Mint).
			Uint64("amount", t.Amount).
			Err(err).
			Msg(failureMessage(t))
		return out
	}

	out.Status = StatusSuccess
	out.TxID = txID
	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "transfer").
		Str("wallet", t.Destination).
		Str("mint", t.Mint).
		Uint64("amount", t.Amount).
		Str("tx", txID).
		Msg("transfer confirmed")

	if werr := tr.success(successLine(t, txID, e.opts.TxURL)); werr != nil {
		log.Warn().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "transcript").
			Err(werr).
			Msg("could not append to success transcript")
	}
	return out
}

func (e *Engine) checksBalance() bool {
	return e.opts.BalanceReader != nil && e.opts.SkipFunded && !e.opts.OverrideBalanceCheck
}

// persistFailures appends the failures to the sink in one write and adds one
// transcript line per failure.
func (e *Engine) persistFailures(
	ctx context.Context,
	sink FailureSink,
	tr *transcript,
	runID string,
	failures []Outcome,
) (int, error) {
	if len(failures) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	records := make([]config.FailureRecord, 0, len(failures))
	lines := make([]string, 0, len(failures))
	for _, o := range failures {
		rec := RecordFromOutcome(o)
		rec.RunID = runID
		rec.FailedAt = now
		records = append(records, rec)
		lines = append(lines, failureLine(o))
	}

	log := logging.FromContext(ctx)
	if werr := tr.failures(lines); werr != nil {
		log.Warn().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "transcript").
			Err(werr).
			Msg("could not append to failure transcript")
	}

	size, err := sink.Append(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("writing failure list: %w", err)
	}

	log.Warn().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "persist_failures").
		Str("run_id", runID).
		Int("new_failures", len(records)).
		Int("list_size", size).
		Msg("failures recorded for retry")
	return size, nil
}
