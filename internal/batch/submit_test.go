package batch

import (
	"context"
	"strings"
	"testing"

	"github.com/ashiklom/veda-data-processing/internal/logging"
)

// fakeRunner records invocations and plays back canned results.
type fakeRunner struct {
	stdout   string
	stderr   string
	exitCode int
	err      error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, int, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.exitCode, f.err
}

func newTestSubmitter(runner commandRunner) *Submitter {
	return &Submitter{
		sbatchBin: "sbatch",
		squeueBin: "squeue",
		runner:    runner,
		logger:    logging.Discard(),
	}
}

func TestSubmitter_Submit(t *testing.T) {
	runner := &fakeRunner{stdout: "48213\n"}
	s := newTestSubmitter(runner)

	jobID, err := s.Submit(context.Background(), "#!/bin/bash\nexec true\n")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if jobID != "48213" {
		t.Errorf("jobID = %q, want %q", jobID, "48213")
	}
	if runner.gotName != "sbatch" {
		t.Errorf("ran %q, want sbatch", runner.gotName)
	}
	if len(runner.gotArgs) != 2 || runner.gotArgs[0] != "--parsable" {
		t.Errorf("args = %v, want [--parsable <script>]", runner.gotArgs)
	}
}

func TestSubmitter_Submit_SchedulerRejects(t *testing.T) {
	runner := &fakeRunner{stderr: "sbatch: error: Invalid account\n", exitCode: 1}
	s := newTestSubmitter(runner)

	_, err := s.Submit(context.Background(), "#!/bin/bash\n")
	if err == nil {
		t.Fatal("Submit succeeded, want error on sbatch failure")
	}
	if !strings.Contains(err.Error(), "Invalid account") {
		t.Errorf("error %q does not carry sbatch stderr", err)
	}
}

func TestSubmitter_JobState(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   string
	}{
		{"running", &fakeRunner{stdout: "RUNNING\n"}, "RUNNING"},
		{"pending", &fakeRunner{stdout: "PENDING\n"}, "PENDING"},
		{"left queue", &fakeRunner{stdout: ""}, "COMPLETED"},
		{"unknown job", &fakeRunner{stderr: "slurm_load_jobs error\n", exitCode: 1}, "COMPLETED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSubmitter(tt.runner)
			got, err := s.JobState(context.Background(), "48213")
			if err != nil {
				t.Fatalf("JobState returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("JobState = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJobID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"48213\n", "48213", false},
		{"48213;cluster2\n", "48213", false},
		{"  991  \n", "991", false},
		{"", "", true},
		{"Submitted batch job 48213\n", "", true},
	}
	for _, tt := range tests {
		got, err := parseJobID(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseJobID(%q) succeeded with %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseJobID(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseJobID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
