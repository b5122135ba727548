package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
# demo
train_roots:
  - /data/a
  - /data/b
lr: 0.2
epochs: 3
eval_no_grad: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.TrainRoots) != 2 || cfg.TrainRoots[1] != "/data/b" {
		t.Fatalf("train roots=%v", cfg.TrainRoots)
	}
	if cfg.LR != 0.2 || cfg.Epochs != 3 || !cfg.EvalNoGrad {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.WarmupEpochs != 5 || cfg.BatchSize != 32 || cfg.Device != "auto" || cfg.LogEvery != 50 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "lr: [oops\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunName != "warpdrive" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	epochs := 7
	lr := 0.01
	var seed int64 = 9
	cfg.ApplyOverrides(Overrides{
		TrainRoots: []string{"/x"},
		Epochs:     &epochs,
		LR:         &lr,
		Seed:       &seed,
		Device:     "cpu",
	})
	if cfg.Epochs != 7 || cfg.LR != 0.01 || cfg.Seed != 9 || cfg.Device != "cpu" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.BatchSize != 32 {
		t.Fatalf("unset override changed batch size to %d", cfg.BatchSize)
	}
	if cfg.TrainRoots[0] != "/x" {
		t.Fatalf("train roots=%v", cfg.TrainRoots)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no data", func(c *Config) { c.TrainRoots = nil }, "train_roots"},
		{"zero warmup", func(c *Config) { c.WarmupEpochs = 0 }, "warmup_epochs"},
		{"bad lr", func(c *Config) { c.LR = 0 }, "lr"},
		{"bad split", func(c *Config) { c.ValidSplit = 1 }, "valid_split"},
		{"bad device", func(c *Config) { c.Device = "tpu" }, "device"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad dropout", func(c *Config) { c.Dropout = 1 }, "dropout"},
		{"one class", func(c *Config) { c.NumClasses = 1 }, "num_classes"},
		{"negative log_every", func(c *Config) { c.LogEvery = -1 }, "log_every"},
	}
	for _, tc := range tests {
		cfg := Default()
		cfg.TrainRoots = []string{"/data"}
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %s", tc.name, err, tc.want)
		}
	}
}

func TestValidateSyntheticOnly(t *testing.T) {
	cfg := Default()
	cfg.SyntheticSamples = 100
	cfg.LogEvery = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.LogEvery != 0 {
		t.Fatalf("Validate changed log_every to %d", cfg.LogEvery)
	}
}
