package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/covtrack/internal/gitctx"
	"github.com/dshills/covtrack/internal/output"
	"github.com/dshills/covtrack/internal/report"
)

func newLocalCmd(a *app) *cobra.Command {
	var (
		lcovPath    string
		base        string
		exclude     string
		outPath     string
		onlySummary bool
		listFiles   bool
		failUnder   float64
	)
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Summarise coverage in the terminal",
		Long: "Print the total and the untested lines of an LCOV report. With --base, " +
			"only the uncovered lines added since that revision are shown.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			current, err := loadLCOV(lcovPath)
			if err != nil {
				return err
			}

			var repo report.RepoInfo
			meta, err := gitctx.GetRepoMeta(ctx, "")
			switch {
			case err == nil:
				repo = report.RepoInfo{Root: meta.Root, Head: meta.Head, Branch: meta.Branch}
			case base != "":
				return err
			default:
				a.logger.Debug("not in a git repository", "error", err)
			}

			var diffs map[string]string
			if base != "" {
				files, err := gitctx.DiffAgainst(ctx, base, gitctx.DiffOptions{Exclude: splitComma(exclude)})
				if err != nil {
					return err
				}
				diffs = make(map[string]string, len(files))
				for _, f := range files {
					diffs[f.Path] = f.Diff
				}
				a.logger.Debug("diff collected", "base", base, "files", len(files))
			}

			r := report.BuildLocal(a.logger, current, report.LocalInput{
				Tool:         "covtrack",
				Version:      version,
				RunID:        uuid.NewString(),
				Repo:         repo,
				SourcePrefix: a.cfg.SourcePrefix,
				Base:         base,
				Diffs:        diffs,
			})
			opts := output.Options{SummaryOnly: onlySummary, ListFiles: listFiles}
			if outPath == "" {
				w, err := output.GetWriter(a.cfg.Format, opts)
				if err != nil {
					return fmt.Errorf("%w: %w", errUsage, err)
				}
				if err := w.Write(a.stdout, &r); err != nil {
					return err
				}
			} else if err := output.WriteReport(&r, a.cfg.Format, opts, outPath); err != nil {
				return err
			}

			if failUnder > 0 && r.Total < failUnder {
				return fmt.Errorf("%w: %.2f%% < %.2f%%", errBelowThreshold, r.Total, failUnder)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&lcovPath, "lcov", "", "LCOV report to summarise")
	cmd.Flags().StringVar(&base, "base", "", "Only report uncovered lines added since this revision")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Exclude file path globs from the diff (comma-separated)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&onlySummary, "only-summary", false, "Print totals only")
	cmd.Flags().BoolVar(&listFiles, "list-files", false, "Also list fully tested files")
	cmd.Flags().Float64Var(&failUnder, "fail-under", 0, "Exit 1 when total coverage is below this percentage")
	cmd.Flags().String("format", "", "Output format (text, json)")
	cmd.Flags().String("source-prefix", "", "Path prefix that starts repository-relative paths in the report")
	return cmd
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
