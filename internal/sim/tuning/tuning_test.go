package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuning(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 5 || tu.Machines.FuelItem != "COAL" || tu.Machines.BurnThreshold != 20 {
		t.Fatalf("tuning=%+v", tu)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Defaults()
	if tu.TickRateHz != 10 || tu.Machines != def.Machines || tu.RateLimits != def.RateLimits {
		t.Fatalf("tuning=%+v", tu)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("machines:\n  burn_threshold: 500\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected threshold > max_burn to fail")
	}
}
