package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/logging"
)

// setupLogging configures logging from the resolved config and the --debug flag,
// and stores the logger and a trace ID in the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config, debug bool) logging.LogPathResult {
	loggingCfg := cfg.Logging
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}

	if loggingCfg.File != "" {
		if err := loggingCfg.EnsureLogDir(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	lc := loggingCfg.ToLoggingConfig()
	var result logging.LogPathResult
	if lc.Output == logging.OutputFile {
		result = logging.NewLoggerWithPath(lc)
	} else {
		result = logging.LogPathResult{Logger: logging.NewLogger(lc, cmd.ErrOrStderr())}
	}
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Info().
		Ctx(ctx).
		Str("command", cmd.Name()).
		Str("cluster", cfg.Cluster).
		Msg("command started")

	return result
}

// cleanupLogging closes the log file handle.
func cleanupLogging(logResult *logging.LogPathResult) error {
	if logResult != nil {
		return logResult.Close()
	}
	return nil
}
