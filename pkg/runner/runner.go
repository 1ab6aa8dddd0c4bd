package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bun-ready/bun-ready/pkg/logger"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// DefaultBinary is the runtime whose compatibility is being probed.
const DefaultBinary = "bun"

// DefaultTimeout bounds each spawned process. A hung install must not
// hang the whole scan.
const DefaultTimeout = 5 * time.Minute

// maxLogLines caps how much process output is carried into the report.
const maxLogLines = 50

// Runner spawns the target runtime for install dry-runs and test runs.
// The zero value uses DefaultBinary and DefaultTimeout.
type Runner struct {
	Binary  string
	Timeout time.Duration
}

// Install performs a dry-run dependency install in dir. The result is
// data, not an error: a failed install marks the package red.
func (r Runner) Install(ctx context.Context, dir string) *scan.StepResult {
	return r.run(ctx, dir, "install", "--dry-run")
}

// Test runs the package's test script under the target runtime.
func (r Runner) Test(ctx context.Context, dir string) *scan.StepResult {
	return r.run(ctx, dir, "run", "test")
}

func (r Runner) run(ctx context.Context, dir string, args ...string) *scan.StepResult {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := r.binary()
	logger.Debugf("Running %s %s in %s", binary, strings.Join(args, " "), dir)

	start := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()

	result := &scan.StepResult{
		Ok:         err == nil,
		Logs:       tailLines(string(out), maxLogLines),
		DurationMS: time.Since(start).Milliseconds(),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Ok = false
		result.TimedOut = true
		result.Logs = append(result.Logs,
			fmt.Sprintf("%s %s timed out after %s", binary, strings.Join(args, " "), timeout))
	case errors.Is(err, exec.ErrNotFound):
		result.Logs = append(result.Logs,
			fmt.Sprintf("%s: command not found in PATH", binary))
		logger.Warnf("%s binary not found in PATH", binary)
	}
	return result
}

func (r Runner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return DefaultBinary
}

func tailLines(out string, limit int) []string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
