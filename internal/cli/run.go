package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/engine/batch"
	"github.com/rshade/splairdrop/internal/solana"
	"github.com/rshade/splairdrop/internal/tui"
)

// passRun is one pass ready to execute.
type passRun struct {
	pass      engine.Pass
	targets   []engine.Target
	records   []config.FailureRecord // retry passes replay these instead of targets
	batchSize int
	fresh     bool
	override  bool
}

func (r passRun) size() int {
	if r.pass.Kind == engine.PassRetry {
		return len(r.records)
	}
	return len(r.targets)
}

// simulatedTransfer is one line of simulate output.
type simulatedTransfer struct {
	Wallet   string `json:"wallet"`
	Mint     string `json:"mint"`
	Amount   string `json:"amount"`
	IsNFT    bool   `json:"isNFT,omitempty"`
	Holdings int    `json:"holdings,omitempty"`
}

// writeSimulation prints the transfers a pass would perform.
func writeSimulation(w io.Writer, transfers []simulatedTransfer) error {
	if transfers == nil {
		transfers = []simulatedTransfer{}
	}
	return writeJSON(w, transfers)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// executePass confirms, runs and summarizes one pass against ledger.
// Partial failure is reported in the summary, not as an error.
func executePass(cmd *cobra.Command, deps Deps, ledger Ledger, run passRun) error {
	ctx, cfg := commandContext(cmd)
	interactive := deps.Interactive()

	if cfg.IsMainnet() && !assumeYes(cmd) && interactive {
		res := ConfirmMainnet(cmd.OutOrStdout(), cmd.InOrStdin(), run.pass.Name, run.size())
		if !res.Accepted {
			return ErrAborted
		}
	}

	if err := cfg.Logs.Reset(run.fresh && run.pass.Kind != engine.PassRetry); err != nil {
		return fmt.Errorf("preparing log directory: %w", err)
	}

	execute := func(ctx context.Context, stop <-chan struct{}, progress batch.ProgressCallback) (*engine.Report, error) {
		opts := engine.Options{
			BatchSize:            run.batchSize,
			Transferer:           ledger,
			BalanceReader:        ledger,
			SkipFunded:           cfg.Transfer.SkipFunded,
			OverrideBalanceCheck: run.override || cfg.Transfer.OverrideBalanceCheck,
			Progress:             progress,
			Stop:                 stop,
			TxURL: func(sig string) string {
				return solana.ExplorerTxURL(sig, cfg.Cluster)
			},
		}
		eng, err := engine.NewEngine(opts)
		if err != nil {
			return nil, err
		}
		if run.pass.Kind == engine.PassRetry {
			return eng.Retry(ctx, run.pass, run.records)
		}
		return eng.Run(ctx, run.pass, run.targets)
	}

	var (
		report *engine.Report
		err    error
	)
	if interactive {
		report, err = tui.RunWithProgress(ctx, run.pass.Name, run.size(), cmd.InOrStdin(), cmd.ErrOrStderr(), execute)
	} else {
		report, err = execute(ctx, nil, nil)
	}

	if report != nil {
		width := 0
		if interactive {
			width = tui.TerminalWidth(os.Stdout)
		}
		if renderErr := tui.RenderSummary(cmd.OutOrStdout(), report, width); renderErr != nil {
			logger.Warn().Ctx(ctx).Err(renderErr).Msg("rendering summary failed")
		}
		logger.Info().
			Ctx(ctx).
			Str("operation", run.pass.Name).
			Str("run_id", report.RunID).
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Msg("pass complete")
	}
	return err
}

// batchSizeFor resolves --batch-size: an explicit flag wins, then the
// configured size, then the command default.
func batchSizeFor(cmd *cobra.Command, cfg *config.Config, flagValue, def int) (int, error) {
	size := cfg.Transfer.BatchSizeOr(def)
	if cmd.Flags().Changed("batch-size") {
		size = flagValue
	}
	if size < 1 || size > config.MaxBatchSize {
		return 0, fmt.Errorf("%w: --batch-size must be between 1 and %d, got %d",
			config.ErrInvalidConfig, config.MaxBatchSize, size)
	}
	return size, nil
}

// denyFilter returns the configured marketplace denylist combined with the exclusions.
func denyFilter(cfg *config.Config, exclusions []string) engine.Eligible {
	return engine.All(
		engine.DenyAddresses(cfg.Filters.DenyAddresses),
		engine.ExcludeAddresses(exclusions),
	)
}
