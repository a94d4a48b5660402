package batch

import (
	"strings"
)

// RenderScript produces the launch script handed to sbatch: a shebang, the
// resource directive block, and one exec line. The command is execed so the
// job's process is the wrapper itself and its exit status reaches SLURM
// unmodified.
func RenderScript(req ResourceRequest, command []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, d := range req.Directives() {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString("exec ")
	b.WriteString(shellJoin(command))
	b.WriteByte('\n')
	return b.String()
}

// shellJoin quotes each argument that needs it and joins with spaces.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shellQuote single-quotes an argument unless it is already shell-safe.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./=:,@%+", r):
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
