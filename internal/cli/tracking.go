package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/covtrack/internal/github"
	"github.com/dshills/covtrack/internal/output"
	"github.com/dshills/covtrack/internal/report"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

func newTrackingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Maintain the coverage tracking repository",
	}
	cmd.AddCommand(newRebuildCmd(a))
	cmd.AddCommand(newRemoveBranchCmd(a))
	return cmd
}

func newRebuildCmd(a *app) *cobra.Command {
	var (
		records      string
		repoFlag     string
		branch       string
		coverageRepo string
		dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate a branch report and the README from the records tree",
		Long: "Walk a checkout of the records tree, render the report of one branch " +
			"and the README, and commit both to the report branch of the coverage repository.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if records == "" && a.cfg.Store.Backend == "fs" {
				fs, err := store.NewFS(a.cfg.Store.Dir)
				if err != nil {
					return err
				}
				records = fs.Dir()
			}
			if records == "" {
				return fmt.Errorf("%w: --records is required", errUsage)
			}
			if repoFlag == "" {
				return fmt.Errorf("%w: --repo is required", errUsage)
			}
			b, err := resolveBranch(branch)
			if err != nil {
				return err
			}
			key, err := snapshot.NewKey(repoFlag, b)
			if err != nil {
				return err
			}
			covOwner, covRepo, err := resolveRepo(ctx, coverageRepo)
			if err != nil {
				return err
			}

			entries, err := store.Walk(ctx, records)
			if err != nil {
				return err
			}
			br, err := report.BranchReportFromWalk(entries, key)
			if err != nil {
				return err
			}
			t := now()
			web := a.cfg.GitHub.WebURL
			reportBranch := a.cfg.Tracking.ReportBranch
			branchPage := output.BranchReport(br, web, t)
			readme := report.BuildReadme(covOwner, covRepo, entries)
			readmePage := output.Readme(readme, web, reportBranch, t)
			a.logger.Info("tracking pages built", "key", key.String(), "branches", readme.Total)

			reportPath := report.ReportPath(key)
			if dryRun {
				fmt.Fprintf(a.stdout, "==> %s\n%s\n==> README.md\n%s", reportPath, branchPage, readmePage)
				return nil
			}

			client, err := a.githubClient()
			if err != nil {
				return err
			}
			if err := client.UpsertFile(ctx, covOwner, covRepo, reportBranch, reportPath,
				"Update report for "+key.String(), []byte(branchPage), a.author()); err != nil {
				return fmt.Errorf("updating %s: %w", reportPath, err)
			}
			if err := client.UpsertFile(ctx, covOwner, covRepo, reportBranch, "README.md",
				"Update README", []byte(readmePage), a.author()); err != nil {
				return fmt.Errorf("updating README.md: %w", err)
			}
			a.logger.Info("tracking pages committed", "repo", covOwner+"/"+covRepo, "branch", reportBranch)
			return nil
		}),
	}
	cmd.Flags().StringVar(&records, "records", "", "Checkout of the records tree (default: store.dir for the fs backend)")
	cmd.Flags().StringVar(&repoFlag, "repo", "", "Tracked repository as owner/repo")
	cmd.Flags().StringVar(&branch, "branch", "", "Tracked branch")
	cmd.Flags().StringVar(&coverageRepo, "coverage-repo", "", "Coverage repository as owner/repo (default: $GITHUB_REPOSITORY)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the pages instead of committing them")
	return cmd
}

func newRemoveBranchCmd(a *app) *cobra.Command {
	var (
		repoFlag     string
		branch       string
		coverageRepo string
	)
	cmd := &cobra.Command{
		Use:   "remove-branch",
		Short: "Delete the coverage history of a branch",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if repoFlag == "" {
				return fmt.Errorf("%w: --repo is required", errUsage)
			}
			b, err := resolveBranch(branch)
			if err != nil {
				return err
			}
			key, err := snapshot.NewKey(repoFlag, b)
			if err != nil {
				return err
			}

			var (
				covOwner, covRepo string
				client            *github.Client
			)
			if a.cfg.Store.Backend == "github" {
				if covOwner, covRepo, err = resolveRepo(ctx, coverageRepo); err != nil {
					return err
				}
				if client, err = a.githubClient(); err != nil {
					return err
				}
			}
			blobs, closeStore, err := a.openStore(ctx, client, covOwner, covRepo)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Remove(ctx, blobs, key); err != nil {
				return fmt.Errorf("removing %s: %w", key, err)
			}
			a.logger.Info("branch history removed", "key", key.String())
			fmt.Fprintf(a.stdout, "Removed coverage history of %s\n", key)
			return nil
		}),
	}
	cmd.Flags().StringVar(&repoFlag, "repo", "", "Tracked repository as owner/repo")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to remove")
	cmd.Flags().StringVar(&coverageRepo, "coverage-repo", "", "Coverage repository as owner/repo (default: $GITHUB_REPOSITORY)")
	cmd.Flags().String("backend", "", "Records backend (github, gcs, fs)")
	return cmd
}
