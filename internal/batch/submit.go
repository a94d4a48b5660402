package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrSchedulerNotFound indicates the sbatch binary is not on PATH.
var ErrSchedulerNotFound = errors.New("scheduler not found")

// commandRunner abstracts scheduler binary invocation for testing.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// osRunner is the real implementation using os/exec.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	switch e := runErr.(type) {
	case nil:
		return stdoutBuf.String(), stderrBuf.String(), 0, nil
	case *exec.ExitError:
		return stdoutBuf.String(), stderrBuf.String(), e.ExitCode(), nil
	default:
		return stdoutBuf.String(), stderrBuf.String(), -1, runErr
	}
}

// Submitter wraps the sbatch and squeue binaries.
type Submitter struct {
	sbatchBin string
	squeueBin string
	runner    commandRunner
	logger    *slog.Logger
}

// NewSubmitter locates sbatch (and, best effort, squeue) on PATH.
func NewSubmitter(logger *slog.Logger) (*Submitter, error) {
	sbatchBin, err := exec.LookPath("sbatch")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
	}
	squeueBin, _ := exec.LookPath("squeue")

	return &Submitter{
		sbatchBin: sbatchBin,
		squeueBin: squeueBin,
		runner:    osRunner{},
		logger:    logger.With("component", "batch"),
	}, nil
}

// Submit writes the script to a temp file, hands it to sbatch --parsable,
// and returns the assigned job ID.
func (s *Submitter) Submit(ctx context.Context, script string) (string, error) {
	dir, err := os.MkdirTemp("", "lisjob-submit-")
	if err != nil {
		return "", fmt.Errorf("create submit dir: %w", err)
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, "launch.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("write launch script: %w", err)
	}

	stdout, stderr, code, err := s.runner.Run(ctx, s.sbatchBin, "--parsable", scriptPath)
	if err != nil {
		return "", fmt.Errorf("run sbatch: %w", err)
	}
	if code != 0 {
		return "", fmt.Errorf("sbatch exited %d: %s", code, strings.TrimSpace(stderr))
	}

	jobID, err := parseJobID(stdout)
	if err != nil {
		return "", err
	}

	s.logger.Info("job submitted", "job_id", jobID)
	return jobID, nil
}

// JobState reports the squeue state of a job. A job squeue no longer knows
// about has left the queue, which squeue signals with empty output or a
// nonzero exit.
func (s *Submitter) JobState(ctx context.Context, jobID string) (string, error) {
	if s.squeueBin == "" {
		return "", fmt.Errorf("%w: squeue not on PATH", ErrSchedulerNotFound)
	}

	stdout, _, code, err := s.runner.Run(ctx, s.squeueBin, "--noheader", "--format=%T", "--job", jobID)
	if err != nil {
		return "", fmt.Errorf("run squeue: %w", err)
	}

	state := strings.TrimSpace(stdout)
	if code != 0 || state == "" {
		return "COMPLETED", nil
	}
	return state, nil
}

// parseJobID extracts the job ID from sbatch --parsable output, which is
// either "<jobid>" or "<jobid>;<cluster>".
func parseJobID(output string) (string, error) {
	line := strings.TrimSpace(output)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return "", errors.New("sbatch produced no job ID")
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("unexpected sbatch output %q", output)
		}
	}
	return line, nil
}
