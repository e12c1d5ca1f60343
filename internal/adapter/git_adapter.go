package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitAdapter wraps the version-control collaborator. Branching, committing
// and pull-request creation are delegated to the git and gh binaries; the
// engine never reimplements them.
type GitAdapter interface {
	CurrentBranch(ctx context.Context, dir string) (string, error)
	CreateBranch(ctx context.Context, dir, name string) error
	CommitAll(ctx context.Context, dir, message string) error
	Push(ctx context.Context, dir, branch string) error
	CreatePullRequest(ctx context.Context, dir, title, body string) (string, error)
	HasChanges(ctx context.Context, dir string) (bool, error)
}

// LocalGitAdapter shells out to git/gh in the target directory.
type LocalGitAdapter struct{}

// NewLocalGitAdapter constructs a LocalGitAdapter.
func NewLocalGitAdapter() *LocalGitAdapter {
	return &LocalGitAdapter{}
}

func (a *LocalGitAdapter) run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// CurrentBranch returns the checked-out branch name.
func (a *LocalGitAdapter) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return a.run(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
}

// CreateBranch creates and checks out a branch.
func (a *LocalGitAdapter) CreateBranch(ctx context.Context, dir, name string) error {
	_, err := a.run(ctx, dir, "git", "checkout", "-b", name)
	return err
}

// CommitAll stages everything and commits with the given message.
func (a *LocalGitAdapter) CommitAll(ctx context.Context, dir, message string) error {
	if _, err := a.run(ctx, dir, "git", "add", "-A"); err != nil {
		return err
	}

	_, err := a.run(ctx, dir, "git", "commit", "-m", message)

	return err
}

// Push pushes the branch to origin.
func (a *LocalGitAdapter) Push(ctx context.Context, dir, branch string) error {
	_, err := a.run(ctx, dir, "git", "push", "-u", "origin", branch)
	return err
}

// CreatePullRequest opens a PR via the gh CLI and returns its URL.
func (a *LocalGitAdapter) CreatePullRequest(ctx context.Context, dir, title, body string) (string, error) {
	return a.run(ctx, dir, "gh", "pr", "create", "--title", title, "--body", body)
}

// HasChanges reports whether the working tree is dirty.
func (a *LocalGitAdapter) HasChanges(ctx context.Context, dir string) (bool, error) {
	out, err := a.run(ctx, dir, "git", "status", "--porcelain")
	if err != nil {
		return false, err
	}

	return out != "", nil
}
