package gitinspect

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestParseAheadBehind(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		behind int
		ahead  int
	}{
		{"in sync", "0\t0", 0, 0},
		{"ahead only", "0\t5", 0, 5},
		{"behind only", "3\t0", 3, 0},
		{"diverged", "2\t7", 2, 7},
		{"empty", "", 0, 0},
		{"single field", "4", 0, 0},
		{"too many fields", "1\t2\t3", 0, 0},
		{"garbage", "foo\tbar", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			behind, ahead := parseAheadBehind(tt.input)
			if behind != tt.behind || ahead != tt.ahead {
				t.Errorf("parseAheadBehind(%q) = (%d, %d), want (%d, %d)",
					tt.input, behind, ahead, tt.behind, tt.ahead)
			}
		})
	}
}

// initTestRepo creates a throwaway git repository with a single commit.
// Tests that need a live git binary skip when it is not installed.
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "--initial-branch=main")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}

func TestExecInspectorStatus(t *testing.T) {
	dir := initTestRepo(t)
	inspector := NewExecInspector(dir, nil)

	status, err := inspector.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if status.Branch != "main" {
		t.Errorf("branch = %q, want main", status.Branch)
	}
	if status.LastCommit == "" {
		t.Error("expected a resolved HEAD commit")
	}
	if status.IsDirty {
		t.Error("fresh commit should leave a clean tree")
	}
	// No upstream configured: counts degrade to in sync.
	if status.AheadBy != 0 || status.BehindBy != 0 {
		t.Errorf("ahead/behind = %d/%d, want 0/0", status.AheadBy, status.BehindBy)
	}
}

func TestExecInspectorStatusDirty(t *testing.T) {
	dir := initTestRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	inspector := NewExecInspector(dir, nil)
	status, err := inspector.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.IsDirty {
		t.Error("modified tracked file should mark the tree dirty")
	}
}

func TestExecInspectorChangedFilesSince(t *testing.T) {
	dir := initTestRepo(t)
	inspector := NewExecInspector(dir, nil)

	// Uncommitted change shows up against HEAD.
	if err := os.WriteFile(filepath.Join(dir, "app.go"), []byte("package app\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "add", "app.go")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}

	files, err := inspector.ChangedFilesSince(context.Background(), "")
	if err != nil {
		t.Fatalf("ChangedFilesSince: %v", err)
	}
	found := false
	for _, f := range files {
		if f == "app.go" {
			found = true
		}
	}
	if !found {
		t.Errorf("changed files %v should include app.go", files)
	}
}

func TestExecInspectorMissingRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	inspector := NewExecInspector(t.TempDir(), nil)
	if _, err := inspector.Status(context.Background()); err == nil {
		t.Error("expected an error outside a git repository")
	}
}
