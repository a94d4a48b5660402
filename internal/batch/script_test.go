package batch

import (
	"strings"
	"testing"
)

func TestRenderScript(t *testing.T) {
	req := ResourceRequest{Account: "s1234", Time: "02:00:00", Output: "job.out"}
	command := []string{"/usr/local/bin/lisjob", "run", "--config", "/data/configs/lis dahiti.yml"}

	script := RenderScript(req, command)

	if !strings.HasPrefix(script, "#!/bin/bash\n") {
		t.Errorf("script missing shebang:\n%s", script)
	}
	for _, want := range []string{
		"#SBATCH --account=s1234",
		"#SBATCH --time=02:00:00",
		"#SBATCH --output=job.out",
		"exec /usr/local/bin/lisjob run --config '/data/configs/lis dahiti.yml'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	// Directives must precede the exec line.
	if strings.Index(script, "#SBATCH") > strings.Index(script, "exec ") {
		t.Errorf("directives appear after exec line:\n%s", script)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"/path/to/file.yml", "/path/to/file.yml"},
		{"--config=x", "--config=x"},
		{"has space", "'has space'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
		{"a;b", "'a;b'"},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
