package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
)

// MaxDiffChars is the default character budget for the diff sent upstream.
const MaxDiffChars = 3072

// TruncationMarker is appended after the cut when a diff is truncated.
const TruncationMarker = "\n... (truncated)"

var (
	// ErrNoChanges indicates the staged diff is empty.
	ErrNoChanges = errors.New("no staged changes found")

	// ErrInvalidEncoding indicates git produced bytes that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("git output was not valid UTF-8")
)

// CommandError reports a git invocation that exited non-zero.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("git %s failed: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// openRepo locates the repository enclosing the working directory.
func openRepo() (*gogit.Repository, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(wd, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return repo, nil
}

// RepoRoot verifies the working directory is inside a git repository and
// returns the worktree root.
func RepoRoot() (string, error) {
	repo, err := openRepo()
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}
	return worktree.Filesystem.Root(), nil
}

// CurrentBranch returns the short HEAD branch name, or the abbreviated
// commit hash on a detached HEAD.
func CurrentBranch() (string, error) {
	repo, err := openRepo()
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if name := head.Name(); name.IsBranch() {
		return name.Short(), nil
	}
	return head.Hash().String()[:7], nil
}

// HasChanges reports whether the worktree has any pending changes.
func HasChanges(ctx context.Context) (bool, error) {
	out, err := capture(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// StageAll stages everything in the worktree, as `git add .` would.
func StageAll(ctx context.Context) error {
	_, err := capture(ctx, "add", ".")
	return err
}

// StagedDiff collects the staged diff, ignoring whitespace-only changes.
// The result is bounded by TruncateDiff before leaving this package.
func StagedDiff(ctx context.Context, maxChars int) (string, error) {
	out, err := captureRaw(ctx, "diff", "--cached", "-b")
	if err != nil {
		return "", err
	}
	return boundDiff(out, maxChars)
}

// boundDiff turns raw diff bytes into a bounded string: output must decode as
// UTF-8 and contain something besides whitespace before the budget applies.
func boundDiff(out []byte, maxChars int) (string, error) {
	if !utf8.Valid(out) {
		return "", ErrInvalidEncoding
	}

	diff := string(out)
	if strings.TrimSpace(diff) == "" {
		return "", ErrNoChanges
	}
	return TruncateDiff(diff, maxChars), nil
}

// TruncateDiff bounds a diff to max characters (runes, not bytes). Diffs at or
// under the budget pass through unchanged; longer diffs keep exactly the first
// max characters with TruncationMarker appended after the cut, so the emitted
// length is max plus the marker's own length.
func TruncateDiff(diff string, max int) string {
	if max <= 0 || utf8.RuneCountInString(diff) <= max {
		return diff
	}
	return string([]rune(diff)[:max]) + TruncationMarker
}

// Commit runs `git commit -e -m <line>` with inherited stdio so the editor
// opens for a final review of the generated message.
func Commit(ctx context.Context, line string) error {
	return run(ctx, "commit", "-e", "-m", line)
}

// Push runs `git push` with inherited stdio.
func Push(ctx context.Context) error {
	return run(ctx, "push")
}

// capture runs git and returns its stdout as a string.
func capture(ctx context.Context, args ...string) (string, error) {
	out, err := captureRaw(ctx, args...)
	return string(out), err
}

func captureRaw(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// run executes git with inherited stdio, for interactive subcommands.
func run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Args: args, Err: err}
	}
	return nil
}
