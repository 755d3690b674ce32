// File: cmd/run.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/browser"
	"github.com/xkilldash9x/replay-cli/internal/data"
	"github.com/xkilldash9x/replay-cli/internal/domview"
	"github.com/xkilldash9x/replay-cli/internal/executor"
	"github.com/xkilldash9x/replay-cli/internal/locator"
	"github.com/xkilldash9x/replay-cli/internal/observability"
	"github.com/xkilldash9x/replay-cli/internal/reporting"
	"github.com/xkilldash9x/replay-cli/internal/runner"
	"github.com/xkilldash9x/replay-cli/internal/waiter"
)

var runFlags struct {
	stepsFile      string
	dataFile       string
	mappingFile    string
	url            string
	htmlFile       string
	output         string
	projectID      string
	stopOnError    bool
	skipOnNotFound bool
	baseDelay      time.Duration
	headless       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a recorded step file, optionally once per CSV data row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return executeRun(cmd)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.stepsFile, "steps", "", "recorded steps file (JSON, required)")
	runCmd.Flags().StringVar(&runFlags.dataFile, "data", "", "CSV data file; one replay iteration per row")
	runCmd.Flags().StringVar(&runFlags.mappingFile, "mapping", "", "YAML field-mapping file (csvColumn -> stepLabel)")
	runCmd.Flags().StringVar(&runFlags.url, "url", "", "page URL to replay against (live browser)")
	runCmd.Flags().StringVar(&runFlags.htmlFile, "html", "", "static HTML snapshot to dry-run against")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "report output path (default stdout)")
	runCmd.Flags().StringVar(&runFlags.projectID, "project", "", "project identifier stamped into the report")
	runCmd.Flags().BoolVar(&runFlags.stopOnError, "stop-on-error", false, "halt the whole run on the first failed step")
	runCmd.Flags().BoolVar(&runFlags.skipOnNotFound, "skip-on-not-found", false, "skip steps whose element never appears instead of failing them")
	runCmd.Flags().DurationVar(&runFlags.baseDelay, "base-delay", 0, "override the base inter-step delay")
	runCmd.Flags().BoolVar(&runFlags.headless, "headless", true, "run the browser headless")

	runCmd.MarkFlagRequired("steps")
	rootCmd.AddCommand(runCmd)
}

func executeRun(cmd *cobra.Command) error {
	logger := observability.GetLogger()
	cfg := appConfig

	cfg.SetEngineStopOnError(runFlags.stopOnError)
	cfg.SetEngineSkipOnNotFound(runFlags.skipOnNotFound)
	if runFlags.baseDelay > 0 {
		cfg.SetEngineBaseDelay(runFlags.baseDelay)
	}
	cfg.SetBrowserHeadless(runFlags.headless)
	engineCfg := cfg.Engine()
	if runFlags.projectID != "" {
		engineCfg.ProjectID = runFlags.projectID
	}

	steps, err := data.LoadSteps(runFlags.stepsFile)
	if err != nil {
		return err
	}

	var rows []schemas.Row
	if runFlags.dataFile != "" {
		if rows, err = data.LoadRows(runFlags.dataFile); err != nil {
			return err
		}
	}
	var mappings schemas.FieldMappings
	if runFlags.mappingFile != "" {
		if mappings, err = data.LoadMappings(runFlags.mappingFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the document/transport pair: a live browser tab, or a parsed
	// snapshot for dry runs.
	var (
		view      schemas.DocumentView
		transport schemas.Transport
	)
	switch {
	case runFlags.url != "":
		session, err := browser.NewSession(ctx, logger, cfg.Browser())
		if err != nil {
			return err
		}
		defer session.Close()
		if err := session.Navigate(ctx, runFlags.url); err != nil {
			return err
		}
		view = session.View()
		transport = session.Transport()
	case runFlags.htmlFile != "":
		f, err := os.Open(runFlags.htmlFile)
		if err != nil {
			return fmt.Errorf("open html snapshot: %w", err)
		}
		snapshot, perr := domview.Parse(f)
		f.Close()
		if perr != nil {
			return perr
		}
		view = snapshot
		transport = domview.NewTransport(snapshot)
	default:
		return fmt.Errorf("either --url or --html is required")
	}

	reporter, err := reporting.New("json", runFlags.output)
	if err != nil {
		return err
	}
	defer reporter.Close()

	resolver := locator.NewResolver(logger, cfg.Locator())
	evaluator := waiter.New(logger, cfg.Wait())
	exec := executor.New(logger, resolver, evaluator, view, transport, cfg.Locator())

	r := runner.New(logger, exec, engineCfg)
	r.SetResultSink(reporter)
	r.OnRowComplete(func(row schemas.RowResult) {
		logger.Info("row complete",
			zap.Int("row", row.RowIndex),
			zap.String("status", string(row.Status)),
			zap.Int("passed", row.Passed),
			zap.Int("failed", row.Failed),
			zap.Int("skipped", row.Skipped))
	})

	export, err := r.Run(ctx, steps, rows, mappings)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), runner.Describe(export))
	if export.Failed > 0 {
		return fmt.Errorf("run finished with %d failed steps", export.Failed)
	}
	return nil
}
