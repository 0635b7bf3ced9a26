package cmd

import (
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/monoscope/core"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/iocache"
	"github.com/huangsam/monoscope/internal/outwriter"
	"github.com/huangsam/monoscope/schema"
	"github.com/spf13/cobra"
)

// runCmd analyzes every module matched by the globs.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze every addon and engine and summarize them per owner.",
	Long: `Discover module manifests, resolve the owning team of each module and
analyze the module body and its tests on a pool of workers.

Writes:
- One report.json and index.html per module under <output>/<owner>/<category>/<module>
- Per-owner and top-level index pages with rolled-up summaries
- A CSV or JSON summary table
- A terminal table of owners and categories

Examples:
  # Analyze all addons and engines
  monoscope run --globs "addons/*/package.json,engines/**/package.json" \
    --output reports --eslintrc .eslintrc.json

  # Group by team using an ownership script
  monoscope run --globs "addons/**" --output reports --eslintrc .eslintrc.json \
    --owners ./scripts/owner-of

  # Retry flaky analyses and export raw records
  monoscope run --globs "addons/**" --output reports --eslintrc .eslintrc.json \
    --retries 2 --parquet-file records.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		deps, err := core.NewDeps(cfg, iocache.Manager, outwriter.BuildEmitters(cfg, os.Stdout)...)
		if err != nil {
			contract.LogFatal("Cannot prepare analysis", err)
		}
		result, err := core.Run(rootCtx, cfg, deps)
		printRunResult(os.Stdout, result, err)
		if err != nil {
			contract.LogFatal("Analysis run failed", err)
		}
	},
}

// printRunResult prints the final line of a run.
func printRunResult(w io.Writer, result schema.RunResult, err error) {
	icon, paint := "✅", color.New(color.FgGreen)
	if err != nil {
		icon, paint = "❌", color.New(color.FgRed)
	}
	_, _ = paint.Fprintf(w, "%s Processed %d modules (%d addons, %d engines) in %s: %d failed jobs across %d modules\n",
		icon, result.Modules, result.Addons, result.Engines,
		result.Duration.Round(time.Millisecond), result.Failed, result.FailedModules)
}
