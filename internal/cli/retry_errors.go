package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/ingest"
)

// retryErrorsParams holds the parameters of the retry-errors command.
type retryErrorsParams struct {
	errorsPath string
	simulate   bool
	batchSize  int
}

// newRetryErrorsCmd creates the retry-errors command, which replays a
// persisted failure list.
func newRetryErrorsCmd(deps Deps) *cobra.Command {
	var params retryErrorsParams

	cmd := &cobra.Command{
		Use:   "retry-errors",
		Short: "Replay the transfers recorded in a failure list",
		Long: `Replay every record of a failure list with its original amount.

By default the first-pass list (transfererror.json in the log directory) is
read. Transfers that fail again are written to retrytransfererror.json; the
input list is never modified.

Retrying the retry list itself first moves it aside to
retrytransfererror.<run id>.json in the log directory. That archive is
replayed and the retry list starts over with only the transfers that still
fail.`,
		Example: `  # Retry the failures of the last airdrop
  splairdrop retry-errors

  # Retry the failures of a previous retry
  splairdrop retry-errors --errorsPath logs/retrytransfererror.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeRetryErrors(cmd, deps, params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.errorsPath, "errorsPath", "", "path to the failure list (default <log-dir>/transfererror.json)")
	f.BoolVar(&params.simulate, "simulate", false, "print the records that would be retried")
	f.IntVar(&params.batchSize, "batch-size", defaultRetryBatchSize, "number of concurrent transfers per batch")

	return cmd
}

// executeRetryErrors loads a failure list and replays it.
func executeRetryErrors(cmd *cobra.Command, deps Deps, params retryErrorsParams) error {
	ctx, cfg := commandContext(cmd)

	path := params.errorsPath
	if path == "" {
		path = cfg.Logs.TransferErrorJSON()
	}
	batchSize, err := batchSizeFor(cmd, cfg, params.batchSize, defaultRetryBatchSize)
	if err != nil {
		return err
	}
	records, err := ingest.LoadFailureList(ctx, path)
	if err != nil {
		return err
	}

	if params.simulate {
		return writeJSON(cmd.OutOrStdout(), records)
	}

	if cfg.Logs.IsRetryList(path) {
		archived, archiveErr := cfg.Logs.ArchiveRetryList()
		if archiveErr != nil {
			return archiveErr
		}
		logger.Info().
			Ctx(ctx).
			Str("operation", "retry_errors").
			Str("input", path).
			Str("archive", archived).
			Int("records", len(records)).
			Msg("retry list archived before replay")
	}

	ledger, err := deps.Dial(cfg)
	if err != nil {
		return err
	}

	return executePass(cmd, deps, ledger, passRun{
		pass:      engine.RetryPass(cfg.Logs),
		records:   records,
		batchSize: batchSize,
	})
}
