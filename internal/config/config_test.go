package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleProfile = `
resources:
  account: s1234
  time: "04:00:00"
  cpus: 28
  memory: 64G
  constraint: "sky|cas"
  output: logs/convert-%j.out
environment:
  modules:
    - python/GEOSpyD/Min4.10.3_py3.9
  conda_env: pangeo
command:
  - python
  - lis_netcdf_to_zarr.py
  - configs/dahiti.yml
log:
  artifact: logs/convert-python.log
  level: debug
preflight:
  enabled: true
  bucket: lis-output
  input_prefix: netcdf/SURFACEMODEL/
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lisjob.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Resources.Account != "s1234" {
		t.Errorf("Resources.Account = %q, want s1234", cfg.Resources.Account)
	}
	if cfg.Resources.CPUs != 28 {
		t.Errorf("Resources.CPUs = %d, want 28", cfg.Resources.CPUs)
	}
	if cfg.Environment.CondaEnv != "pangeo" {
		t.Errorf("Environment.CondaEnv = %q, want pangeo", cfg.Environment.CondaEnv)
	}
	if len(cfg.Command) != 3 || cfg.Command[0] != "python" {
		t.Errorf("Command = %v, want python invocation", cfg.Command)
	}
	if cfg.Log.Artifact != "logs/convert-python.log" {
		t.Errorf("Log.Artifact = %q", cfg.Log.Artifact)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want override debug", cfg.Log.Level)
	}
	// Defaults survive partial overrides.
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want default text", cfg.Log.Format)
	}
	if cfg.Preflight.Region != "us-west-2" {
		t.Errorf("Preflight.Region = %q, want default", cfg.Preflight.Region)
	}
	if cfg.History.Path == "" {
		t.Error("History.Path default missing")
	}
}

func TestLoad_MissingCommand(t *testing.T) {
	_, err := Load(writeProfile(t, "resources:\n  account: s1234\n"))
	if err == nil {
		t.Fatal("Load succeeded without a command, want error")
	}
	if !strings.Contains(err.Error(), "command") {
		t.Errorf("error = %v, want command validation failure", err)
	}
}

func TestLoad_PreflightNeedsBucket(t *testing.T) {
	profile := "command: [python, x.py]\npreflight:\n  enabled: true\n"
	_, err := Load(writeProfile(t, profile))
	if err == nil || !strings.Contains(err.Error(), "preflight.bucket") {
		t.Errorf("Load = %v, want preflight.bucket validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("Load succeeded on missing file, want error")
	}
}
