package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func chdirRepoRoot(t *testing.T) func() {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	return func() { os.Chdir(wd) }
}

func TestLoadDefault(t *testing.T) {
	defer chdirRepoRoot(t)()
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.KernelNamespace != "kernel" {
		t.Fatalf("unexpected kernel namespace: %q", cfg.Runtime.KernelNamespace)
	}
	if cfg.Execution.DefaultStepBudget != 10_000_000 {
		t.Fatalf("unexpected step budget: %d", cfg.Execution.DefaultStepBudget)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	defer chdirRepoRoot(t)()
	viper.Reset()

	cfg, err := Load("staging")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected staging override, got %q", cfg.Logging.Level)
	}
	if !cfg.Execution.OpcodeDebug {
		t.Fatalf("expected opcode_debug true under staging override")
	}
}

func TestDefaultHasSaneLimits(t *testing.T) {
	c := Default()
	if c.Runtime.MaxStringLen != 1<<16-1 {
		t.Fatalf("expected u16 string cap, got %d", c.Runtime.MaxStringLen)
	}
	if c.Sandbox.MemoryLimitBytes == 0 || c.Execution.DefaultStepBudget == 0 {
		t.Fatalf("expected non-zero default limits")
	}
}
