//go:build integration

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Harness builds the savesyncd binary and runs it against a throwaway home
// directory
type Harness struct {
	t         *testing.T
	binary    string
	Home      string
	SaveDir   string
	BackupDir string
}

// NewHarness creates a harness with an empty save directory and a config
// file pointing at it
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	home := t.TempDir()
	h := &Harness{
		t:         t,
		Home:      home,
		SaveDir:   filepath.Join(home, "saves"),
		BackupDir: filepath.Join(home, "backup"),
	}

	if err := os.MkdirAll(h.SaveDir, 0755); err != nil {
		t.Fatalf("create save dir: %v", err)
	}

	config := fmt.Sprintf(`paths:
  save_dir: %q
  backup_dir: %q
log:
  file: "~/savesyncd.log"
`, h.SaveDir, h.BackupDir)
	h.writeConfig(config)

	return h
}

func (h *Harness) writeConfig(content string) {
	h.t.Helper()
	dir := filepath.Join(h.Home, ".config", "savesyncd")
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		h.t.Fatalf("write config: %v", err)
	}
}

// Build compiles the binary into a temporary directory
func (h *Harness) Build(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	h.binary = filepath.Join(h.t.TempDir(), "savesyncd")
	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binary, "./cmd/savesyncd")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	return nil
}

// Exec runs the binary with HOME pointing at the harness home
func (h *Harness) Exec(ctx context.Context, stdin string, args ...string) (string, string, int, error) {
	h.t.Helper()
	if h.binary == "" {
		return "", "", 0, fmt.Errorf("binary not built")
	}

	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+h.Home)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustExec runs the binary and fails the test if it exits non-zero
func (h *Harness) MustExec(ctx context.Context, args ...string) string {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Exec(ctx, "", args...)
	if err != nil {
		h.t.Fatalf("exec failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("command failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, stdout, stderr, args)
	}
	return stdout
}

// WriteSave writes a file into dir with the given modification time
func (h *Harness) WriteSave(dir, name, content string, mtime time.Time) {
	h.t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("write save: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		h.t.Fatalf("set mtime: %v", err)
	}
}

// ReadFile returns the content of dir/name
func (h *Harness) ReadFile(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	return string(data), err
}

// FileExists checks whether dir/name exists
func (h *Harness) FileExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)

// findProjectRoot walks up the directory tree from the current file to find go.mod
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
