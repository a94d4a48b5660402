// Package launcher runs the external conversion program exactly once and
// mirrors its exit status. The contract is narrow: activate the runtime
// environment, run the command synchronously with its output redirected to
// a dedicated log artifact, write one status line to stdout, and surface
// the command's exit code untouched.
package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	rt "github.com/ashiklom/veda-data-processing/internal/runtime"
)

// Status markers, one of which is written to stdout per invocation.
const (
	successMarker = "Done!"
	failureMarker = "Error executing Python script"
)

// Exit statuses for failures that happen before the external command runs.
// The command's own codes are never remapped; these only cover the cases
// where there is no child status to mirror.
const (
	ExitLauncherFault    = 3   // log artifact unopenable
	ExitActivationFailed = 4   // runtime environment activation failed
	ExitCommandNotFound  = 127 // child binary missing or not executable
)

// Activator resolves the runtime environment before execution.
// *runtime.Environment satisfies it.
type Activator interface {
	Activate(ctx context.Context) (*rt.Snapshot, error)
}

// Command is the external program to run.
type Command struct {
	Argv []string
	Dir  string
}

// Result is the tagged outcome of one invocation.
type Result struct {
	ExitCode int
	LogPath  string
	Started  time.Time
	Finished time.Time
}

// Success reports whether the external command exited 0.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// ExitError carries the status the wrapper process must terminate with.
// Only main maps it to os.Exit; everything below returns it as a value.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Launcher orchestrates one external invocation end-to-end.
type Launcher struct {
	logger    *slog.Logger
	status    io.Writer // stdout; receives exactly one marker line per Run
	activator Activator
	command   Command
	logPath   string // artifact capturing the command's stdout+stderr
}

// Config assembles a Launcher.
type Config struct {
	Logger    *slog.Logger
	Status    io.Writer // defaults to os.Stdout
	Activator Activator // nil inherits the wrapper's own environment
	Command   Command
	LogPath   string
}

// New creates a Launcher.
func New(cfg Config) *Launcher {
	status := cfg.Status
	if status == nil {
		status = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		logger:    logger.With("component", "launcher"),
		status:    status,
		activator: cfg.Activator,
		command:   cfg.Command,
		logPath:   cfg.LogPath,
	}
}

// Run executes the sequence: activate, run, evaluate. It always writes
// exactly one status marker and always returns a Result carrying the final
// exit code; the error adds diagnostic context for nonzero outcomes.
func (l *Launcher) Run(ctx context.Context) (*Result, error) {
	res := &Result{LogPath: l.logPath, Started: time.Now()}

	if len(l.command.Argv) == 0 {
		res.ExitCode = ExitLauncherFault
		return l.fail(res, fmt.Errorf("empty command"))
	}

	// Activation precedes execution; on failure the command never starts.
	env := rt.Inherit()
	if l.activator != nil {
		snap, err := l.activator.Activate(ctx)
		if err != nil {
			res.ExitCode = ExitActivationFailed
			return l.fail(res, fmt.Errorf("activate environment: %w", err))
		}
		env = snap
	}

	logFile, err := l.openLog()
	if err != nil {
		res.ExitCode = ExitLauncherFault
		return l.fail(res, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, l.command.Argv[0], l.command.Argv[1:]...)
	cmd.Dir = l.command.Dir
	cmd.Env = env.Environ()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	l.logger.Info("executing", "command", l.command.Argv, "log", l.logPath)

	runErr := cmd.Run()
	res.Finished = time.Now()

	switch e := runErr.(type) {
	case nil:
		res.ExitCode = 0
	case *exec.ExitError:
		res.ExitCode = exitCodeOf(e)
	default:
		// Start failures: binary missing, not executable, bad workdir.
		res.ExitCode = ExitCommandNotFound
		return l.fail(res, fmt.Errorf("start command: %w", runErr))
	}

	if res.ExitCode != 0 {
		fmt.Fprintln(l.status, failureMarker)
		l.logger.Error("command failed", "exit_code", res.ExitCode, "log", l.logPath)
		return res, &ExitError{Code: res.ExitCode}
	}

	fmt.Fprintln(l.status, successMarker)
	l.logger.Info("command succeeded", "duration", res.Finished.Sub(res.Started).Round(time.Millisecond))
	return res, nil
}

// fail stamps the finish time, emits the failure marker, and wraps the
// cause so callers still see the mandated exit code via the Result.
func (l *Launcher) fail(res *Result, cause error) (*Result, error) {
	if res.Finished.IsZero() {
		res.Finished = time.Now()
	}
	fmt.Fprintln(l.status, failureMarker)
	l.logger.Error("launch failed", "exit_code", res.ExitCode, "error", cause)
	return res, fmt.Errorf("%w: %v", &ExitError{Code: res.ExitCode}, cause)
}

// exitCodeOf maps a child's wait status to the shell-convention exit code.
// ExitCode() reports -1 for signal-killed children, but the scheduler kills
// jobs with signals (OOM, scancel) and the mirrored status must be the
// 128+signal code the shell would report, e.g. 137 for SIGKILL.
func exitCodeOf(e *exec.ExitError) int {
	if code := e.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := e.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	// Neither exited nor signaled; 255 is what os.Exit(-1) would produce.
	return 255
}

// openLog creates the log artifact, making parent directories as needed.
func (l *Launcher) openLog() (*os.File, error) {
	if l.logPath == "" {
		return nil, fmt.Errorf("no log path configured")
	}
	if dir := filepath.Dir(l.logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.Create(l.logPath)
	if err != nil {
		return nil, fmt.Errorf("create log artifact: %w", err)
	}
	return f, nil
}

// SuccessMarker and FailureMarker expose the exact status strings for tests
// and callers that scan logs.
func SuccessMarker() string { return successMarker }
func FailureMarker() string { return failureMarker }
