// Package batch renders SLURM resource directives and drives the sbatch
// and squeue binaries. The directives are opaque configuration to the rest
// of the wrapper: they are declared once at submission time and consumed
// entirely by the scheduler before the launch script runs.
package batch

import (
	"fmt"
	"strings"
)

// directivePrefix is the marker SLURM scans for in a launch script.
const directivePrefix = "#SBATCH"

// ResourceRequest is the fixed set of declarative directives for one job.
// The launcher never reads or validates these at runtime; a malformed
// directive fails at submission time, inside sbatch.
type ResourceRequest struct {
	Account    string `yaml:"account"`    // accounting project, e.g. s1234
	Time       string `yaml:"time"`       // wall-clock limit, e.g. 04:00:00
	CPUs       int    `yaml:"cpus"`       // cpus per task
	Memory     string `yaml:"memory"`     // memory quota, e.g. 64G
	Constraint string `yaml:"constraint"` // node-feature expression, e.g. "cas|sky"
	Output     string `yaml:"output"`     // scheduler job-output log path
}

// Directives renders the request as #SBATCH lines in a fixed order.
// Empty fields are skipped rather than rendered as empty directives.
func (r ResourceRequest) Directives() []string {
	var lines []string
	add := func(flag, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%s --%s=%s", directivePrefix, flag, value))
		}
	}

	add("account", r.Account)
	add("time", r.Time)
	if r.CPUs > 0 {
		add("cpus-per-task", fmt.Sprintf("%d", r.CPUs))
	}
	add("mem", r.Memory)
	if r.Constraint != "" {
		add("constraint", quoteIfNeeded(r.Constraint))
	}
	add("output", r.Output)

	return lines
}

// quoteIfNeeded wraps constraint expressions containing shell metacharacters
// in double quotes, matching how they appear in hand-written scripts.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, "|&() \t") {
		return `"` + s + `"`
	}
	return s
}
