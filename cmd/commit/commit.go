package commit

import (
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aicommit/api"
	"aicommit/git"
	"aicommit/model"
)

var (
	autoStage    bool
	pushAfter    bool
	maxDiffChars int
)

var CommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Generate a commit message from the staged diff and commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if maxDiffChars <= 0 {
			return fmt.Errorf("--max-diff-chars must be positive, got %d", maxDiffChars)
		}

		if _, err := git.RepoRoot(); err != nil {
			return err
		}

		if autoStage {
			dirty, err := git.HasChanges(ctx)
			if err != nil {
				return err
			}
			if !dirty {
				return git.ErrNoChanges
			}
			if err := git.StageAll(ctx); err != nil {
				return err
			}
		}

		diff, err := git.StagedDiff(ctx, maxDiffChars)
		if err != nil {
			return err
		}

		branch, err := git.CurrentBranch()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Staged diff found on %s; generating message...\n", branch)

		client := api.NewClient(api.Config{
			APIKey:  viper.GetString("apiKey"),
			BaseURL: viper.GetString("baseURL"),
			Model:   viper.GetString("model"),
		})

		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Generating commit message..."
		s.Start()
		raw, err := client.GenerateCommit(ctx, diff)
		s.Stop()
		if err != nil {
			return err
		}

		commit, err := model.ParseCommit(raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Parsed commit: type=%q, scope=%q, message=%q\n",
			commit.Kind, commit.Scope, commit.Message)

		if err := git.Commit(ctx, commit.Line()); err != nil {
			return err
		}

		if !pushAfter {
			return nil
		}

		confirmed := false
		prompt := &survey.Confirm{
			Message: "Push to remote?",
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirmed, survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)); err != nil {
			return fmt.Errorf("push confirmation: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(os.Stderr, "Push skipped.")
			return nil
		}
		return git.Push(ctx)
	},
}

func init() {
	CommitCmd.Flags().BoolVar(&autoStage, "auto-stage", true, "Run `git add .` before collecting the diff")
	CommitCmd.Flags().BoolVar(&pushAfter, "push", false, "Offer to push after a successful commit")
	CommitCmd.Flags().IntVar(&maxDiffChars, "max-diff-chars", git.MaxDiffChars, "Maximum diff characters sent to the model")
}
