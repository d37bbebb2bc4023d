package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/covtrack/internal/github"
	"github.com/dshills/covtrack/internal/lcov"
	"github.com/dshills/covtrack/internal/output"
	"github.com/dshills/covtrack/internal/report"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// coverageFlags are shared by the coverage subcommands.
type coverageFlags struct {
	lcovPath string
	repo     string
	commit   string
	dryRun   bool
}

func (f *coverageFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.lcovPath, "lcov", "", "LCOV report of the run")
	cmd.Flags().StringVar(&f.repo, "repo", "", "Repository as owner/repo (default: $GITHUB_REPOSITORY or origin)")
	cmd.Flags().StringVar(&f.commit, "commit", "", "Commit SHA (default: $GITHUB_SHA)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print comments instead of posting them")
	cmd.Flags().String("source-prefix", "", "Path prefix that starts repository-relative paths in the report")
}

func (f *coverageFlags) commitSHA() (string, error) {
	sha := f.commit
	if sha == "" {
		sha = os.Getenv("GITHUB_SHA")
	}
	if sha == "" {
		return "", fmt.Errorf("%w: --commit is required", errUsage)
	}
	return sha, nil
}

func newCoverageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report coverage of a pull request or push",
	}
	cmd.AddCommand(newPullRequestCmd(a))
	cmd.AddCommand(newPushCmd(a))
	cmd.AddCommand(newPushWithReportCmd(a))
	return cmd
}

func newPullRequestCmd(a *app) *cobra.Command {
	var (
		flags   coverageFlags
		number  int
		oldLCOV string
	)
	cmd := &cobra.Command{
		Use:   "pull-request",
		Short: "Comment on the untested lines a pull request adds",
		Long: "Attribute uncovered lines to the pull request diff, post a summary " +
			"comment and one review comment per untested range.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if number <= 0 {
				return fmt.Errorf("%w: --pr must be a positive pull request number", errUsage)
			}
			commit, err := flags.commitSHA()
			if err != nil {
				return err
			}
			owner, repo, err := resolveRepo(ctx, flags.repo)
			if err != nil {
				return err
			}
			current, err := loadLCOV(flags.lcovPath)
			if err != nil {
				return err
			}
			var base lcov.Records
			if oldLCOV != "" {
				if base, err = lcov.ParseFile(oldLCOV); err != nil {
					return err
				}
			}
			client, err := a.githubClient()
			if err != nil {
				return err
			}

			files, err := client.ListPullFiles(ctx, owner, repo, number)
			if err != nil {
				return err
			}
			diffs := make(map[string]string, len(files))
			for _, f := range files {
				if f.Patch == "" {
					continue
				}
				diffs[f.Filename] = f.UnifiedDiff()
			}

			r := report.BuildPullRequest(a.logger, current, report.PullRequestInput{
				Owner:        owner,
				Repo:         repo,
				Number:       number,
				CommitID:     commit,
				SourcePrefix: a.cfg.SourcePrefix,
				Diffs:        diffs,
				Base:         base,
			})
			body := output.PullRequestComment(&r, a.cfg.GitHub.WebURL)
			a.logger.Info("pull request coverage", "repo", owner+"/"+repo, "pr", number,
				"total", r.Total, "untested_files", len(r.Files))

			if flags.dryRun {
				fmt.Fprintln(a.stdout, body)
				for _, f := range r.Files {
					for _, rg := range f.ReviewRanges {
						fmt.Fprintf(a.stdout, "review comment %s:%s\n", f.Path, rg)
					}
				}
				return nil
			}

			if err := client.CreateIssueComment(ctx, owner, repo, number, body); err != nil {
				return err
			}
			var errs []error
			for _, f := range r.Files {
				for _, rg := range f.ReviewRanges {
					err := client.CreateReviewComment(ctx, owner, repo, number, github.ReviewComment{
						CommitID:  commit,
						Path:      f.Path,
						StartLine: rg.Start,
						Line:      rg.End,
					})
					if err != nil {
						a.logger.Warn("review comment failed", "path", f.Path, "lines", rg.String(), "error", err)
						errs = append(errs, err)
						continue
					}
					a.logger.Debug("review comment posted", "path", f.Path, "lines", rg.String())
				}
			}
			return errors.Join(errs...)
		}),
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&number, "pr", 0, "Pull request number")
	cmd.Flags().StringVar(&oldLCOV, "old-lcov", "", "LCOV report of the base branch, for the delta")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var flags coverageFlags
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Comment on the untested lines of a pushed commit",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			_, err := a.push(cmd, &flags)
			return err
		}),
	}
	flags.bind(cmd)
	return cmd
}

// push posts the commit comment and returns the report it was built from.
func (a *app) push(cmd *cobra.Command, flags *coverageFlags) (*report.PushReport, error) {
	ctx := cmd.Context()
	commit, err := flags.commitSHA()
	if err != nil {
		return nil, err
	}
	owner, repo, err := resolveRepo(ctx, flags.repo)
	if err != nil {
		return nil, err
	}
	current, err := loadLCOV(flags.lcovPath)
	if err != nil {
		return nil, err
	}

	r := report.BuildPush(current, owner, repo, commit, a.cfg.SourcePrefix)
	body := output.PushComment(&r, a.cfg.GitHub.WebURL)
	a.logger.Info("push coverage", "repo", owner+"/"+repo, "commit", commit,
		"total", r.Total, "untested_files", len(r.Files))

	if flags.dryRun {
		fmt.Fprintln(a.stdout, body)
		return &r, nil
	}
	client, err := a.githubClient()
	if err != nil {
		return nil, err
	}
	if err := client.CreateCommitComment(ctx, owner, repo, commit, body); err != nil {
		return nil, err
	}
	return &r, nil
}

func newPushWithReportCmd(a *app) *cobra.Command {
	var (
		flags        coverageFlags
		branch       string
		coverageRepo string
		team         string
	)
	cmd := &cobra.Command{
		Use:   "push-with-report",
		Short: "Comment on a push and record its coverage in the branch history",
		Long: "Post the push comment, append a snapshot to the branch history and " +
			"dispatch the tracking workflow of the coverage repository.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := snapshot.ParseTeam(team)
			if err != nil {
				return err
			}
			b, err := resolveBranch(branch)
			if err != nil {
				return err
			}
			covOwner, covRepo, err := snapshot.ParseRepo(coverageRepo)
			if err != nil {
				return err
			}

			r, err := a.push(cmd, &flags)
			if err != nil {
				return err
			}
			key := snapshot.Key{Owner: r.Owner, Repo: r.Repo, Branch: b}
			if flags.dryRun {
				fmt.Fprintf(a.stdout, "would record %.2f%% for %s (team %s)\n", r.Total, key, t)
				return nil
			}

			var client *github.Client
			if a.cfg.Store.Backend == "github" || a.cfg.Tracking.Workflow != "" {
				if client, err = a.githubClient(); err != nil {
					return err
				}
			}
			blobs, closeStore, err := a.openStore(ctx, client, covOwner, covRepo)
			if err != nil {
				return err
			}
			defer closeStore()

			files := r.FileRecords()
			c, err := store.Update(ctx, blobs, key, t, func(c *snapshot.Collection) error {
				c.Team = t
				c.Append(r.Total, files, now())
				return nil
			}, a.updateOptions())
			if err != nil {
				return fmt.Errorf("recording coverage for %s: %w", key, err)
			}
			a.logger.Info("coverage recorded", "key", key.String(), "snapshots", len(c.Snapshots))

			if a.cfg.Tracking.Workflow == "" {
				return nil
			}
			inputs := map[string]string{"repo-name": key.Repository(), "branch": key.Branch}
			if err := client.DispatchWorkflow(ctx, covOwner, covRepo, a.cfg.Tracking.Workflow, a.cfg.Tracking.Ref, inputs); err != nil {
				return err
			}
			a.logger.Info("tracking workflow dispatched", "repo", coverageRepo, "workflow", a.cfg.Tracking.Workflow)
			return nil
		}),
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&branch, "branch", "", "Branch the push landed on (default: $GITHUB_REF_NAME)")
	cmd.Flags().StringVar(&coverageRepo, "coverage-repo", "", "Tracking repository as owner/repo")
	cmd.Flags().StringVar(&team, "team", "", "Owning team ("+teamList()+")")
	cmd.Flags().String("backend", "", "Records backend (github, gcs, fs)")
	return cmd
}

func teamList() string {
	s := ""
	for i, t := range snapshot.Teams() {
		if i > 0 {
			s += ", "
		}
		s += string(t)
	}
	return s
}
