// Package runtime resolves a named runtime environment (Lmod modules plus
// a conda environment) into an explicit variable snapshot. Activation is a
// checked step with a real error, not a shell side effect: the launcher
// refuses to run the external command when activation fails.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner abstracts shell invocation for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// osCommandRunner is the real implementation using os/exec.
type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
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

// Environment names the runtime profile the external command needs.
type Environment struct {
	Modules  []string          // Lmod modules, e.g. python/GEOSpyD/Min4.10.3_py3.9
	CondaEnv string            // conda environment name, e.g. pangeo
	Shell    string            // activation shell (default /bin/bash)
	Extra    map[string]string // per-job variables layered over the snapshot

	runner CommandRunner
}

// New creates an Environment activated through the default shell.
func New(modules []string, condaEnv string) *Environment {
	return &Environment{Modules: modules, CondaEnv: condaEnv}
}

// WithRunner overrides the shell runner. Test seam.
func (e *Environment) WithRunner(r CommandRunner) *Environment {
	e.runner = r
	return e
}

// Snapshot is the resolved process environment after activation.
type Snapshot struct {
	vars []string
}

// Environ returns the KEY=VALUE list in the form exec.Cmd expects.
func (s *Snapshot) Environ() []string {
	out := make([]string, len(s.vars))
	copy(out, s.vars)
	return out
}

// Lookup returns the value of a variable in the snapshot.
func (s *Snapshot) Lookup(key string) (string, bool) {
	prefix := key + "="
	for _, v := range s.vars {
		if strings.HasPrefix(v, prefix) {
			return v[len(prefix):], true
		}
	}
	return "", false
}

// Activate runs the activation recipe through a login shell and captures
// the resulting environment. Any failure in the recipe (missing module,
// unknown conda env, shell startup error) surfaces here, before the
// external command ever starts.
func (e *Environment) Activate(ctx context.Context) (*Snapshot, error) {
	shell := e.Shell
	if shell == "" {
		shell = "/bin/bash"
	}
	runner := e.runner
	if runner == nil {
		runner = osCommandRunner{}
	}

	script := e.activationScript()
	stdout, stderr, code, err := runner.Run(ctx, shell, "-l", "-c", script)
	if err != nil {
		return nil, fmt.Errorf("run activation shell: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("activation exited %d: %s", code, strings.TrimSpace(stderr))
	}

	vars := parseEnviron(stdout)
	if len(vars) == 0 {
		return nil, fmt.Errorf("activation produced no environment")
	}

	for k, v := range e.Extra {
		vars = setVar(vars, k, v)
	}

	return &Snapshot{vars: vars}, nil
}

// activationScript builds the shell recipe: load each module, activate the
// conda env, then dump the environment NUL-separated so values containing
// newlines survive.
func (e *Environment) activationScript() string {
	var b strings.Builder
	b.WriteString("set -e\n")
	for _, m := range e.Modules {
		fmt.Fprintf(&b, "module load %s\n", m)
	}
	if e.CondaEnv != "" {
		fmt.Fprintf(&b, "conda activate %s\n", e.CondaEnv)
	}
	b.WriteString("env -0\n")
	return b.String()
}

// Inherit returns a snapshot of the wrapper's own environment, for runs
// that declare no modules and no conda env.
func Inherit() *Snapshot {
	return &Snapshot{vars: os.Environ()}
}

// parseEnviron splits NUL-separated `env -0` output into KEY=VALUE entries.
func parseEnviron(out string) []string {
	var vars []string
	for _, entry := range strings.Split(out, "\x00") {
		if entry == "" || !strings.Contains(entry, "=") {
			continue
		}
		vars = append(vars, entry)
	}
	return vars
}

// setVar replaces or appends a KEY=VALUE entry.
func setVar(vars []string, key, value string) []string {
	prefix := key + "="
	for i, v := range vars {
		if strings.HasPrefix(v, prefix) {
			vars[i] = prefix + value
			return vars
		}
	}
	return append(vars, prefix+value)
}
