// Package gitinspect reports source-control state for a project working tree.
// The deploy engine consumes two read operations: the current branch status
// and the set of files changed since the last deployment.
package gitinspect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Status describes the state of a working tree relative to its upstream.
type Status struct {
	Branch     string `json:"branch"`
	LastCommit string `json:"last_commit"`
	AheadBy    int    `json:"ahead_by"`
	BehindBy   int    `json:"behind_by"`
	IsDirty    bool   `json:"is_dirty"`
}

// Inspector reports git state for a project checkout.
type Inspector interface {
	// Status returns the branch state of the working tree. Partial data is
	// returned with least-risky defaults when individual queries fail.
	Status(ctx context.Context) (*Status, error)
	// ChangedFilesSince lists files changed since the given commit. An empty
	// commit means "everything currently tracked as changed".
	ChangedFilesSince(ctx context.Context, commit string) ([]string, error)
}

// ExecInspector shells out to git in a working directory.
type ExecInspector struct {
	dir    string
	logger *slog.Logger
}

// NewExecInspector creates an inspector over the given working directory.
func NewExecInspector(dir string, logger *slog.Logger) *ExecInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecInspector{dir: dir, logger: logger}
}

// Status returns the branch state of the working tree. Individual command
// failures degrade to the least risky assumption (not dirty, not ahead)
// rather than failing the whole call.
func (i *ExecInspector) Status(ctx context.Context) (*Status, error) {
	branch, err := i.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolving branch: %w", err)
	}

	status := &Status{Branch: branch}

	if commit, err := i.run(ctx, "rev-parse", "HEAD"); err == nil {
		status.LastCommit = commit
	} else {
		i.logger.Warn("could not resolve HEAD commit", "error", err)
	}

	if out, err := i.run(ctx, "rev-list", "--left-right", "--count", "@{upstream}...HEAD"); err == nil {
		status.BehindBy, status.AheadBy = parseAheadBehind(out)
	} else {
		// No upstream, or detached HEAD. Treat as in sync.
		i.logger.Debug("could not compute ahead/behind counts", "error", err)
	}

	if out, err := i.run(ctx, "status", "--porcelain"); err == nil {
		status.IsDirty = strings.TrimSpace(out) != ""
	} else {
		i.logger.Warn("could not check working tree state", "error", err)
	}

	return status, nil
}

// ChangedFilesSince lists files changed since the given commit.
func (i *ExecInspector) ChangedFilesSince(ctx context.Context, commit string) ([]string, error) {
	args := []string{"diff", "--name-only"}
	if commit != "" {
		args = append(args, commit+"...HEAD")
	} else {
		args = append(args, "HEAD")
	}

	out, err := i.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("listing changed files: %w", err)
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func (i *ExecInspector) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = i.dir
	// Prevent git from prompting for credentials interactively.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// parseAheadBehind parses `git rev-list --left-right --count` output of the
// form "<behind>\t<ahead>". Unparseable input counts as in sync.
func parseAheadBehind(out string) (behind, ahead int) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0
	}
	behind, _ = strconv.Atoi(fields[0])
	ahead, _ = strconv.Atoi(fields[1])
	return behind, ahead
}
