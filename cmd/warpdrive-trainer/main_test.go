package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"warpdrive-trainer/internal/config"
	"warpdrive-trainer/internal/logger"
	"warpdrive-trainer/internal/trainer"
)

func TestExitCodeNonFiniteLoss(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := fmt.Errorf("epoch 3: %w", &trainer.NonFiniteLossError{Phase: trainer.PhaseTraining, Batch: 4, Loss: math.Inf(1)})

	if code := exitCode(&stdout, &stderr, err); code != 1 {
		t.Fatalf("exit code=%d want 1", code)
	}
	if got := strings.TrimSpace(stdout.String()); got != "[Error] nan loss, stop training." {
		t.Fatalf("stdout=%q", got)
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestExitCodeOtherErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := exitCode(&stdout, &stderr, errors.New("boom")); code != 1 {
		t.Fatalf("exit code=%d want 1", code)
	}
	if !strings.Contains(stderr.String(), "boom") || stdout.Len() != 0 {
		t.Fatalf("stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
	if code := exitCode(&stdout, &stderr, nil); code != 0 {
		t.Fatalf("exit code=%d want 0", code)
	}
}

func TestRunTrainingSynthetic(t *testing.T) {
	cfg := config.Default()
	cfg.SyntheticSamples = 80
	cfg.NumClasses = 3
	cfg.BatchSize = 16
	cfg.Epochs = 3
	cfg.WarmupEpochs = 1
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.json")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ctx := logger.WithContext(context.Background(), logger.Discard())
	if err := runTraining(ctx, cfg); err != nil {
		t.Fatalf("runTraining: %v", err)
	}
	data, err := os.ReadFile(cfg.HistoryPath)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if !strings.Contains(string(data), `"train_loss"`) {
		t.Fatalf("unexpected history %s", data)
	}
}

func TestTrainCommandFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	historyFile := filepath.Join(dir, "h.json")
	body := "synthetic_samples: 40\nnum_classes: 2\nepochs: 5\nlog_level: error\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	app := &cli.Command{Name: "warpdrive-trainer", Commands: []*cli.Command{trainCmd()}}
	args := []string{"warpdrive-trainer", "train", "--config", cfgPath, "--epochs", "1", "--history", historyFile, "--log-format", "text"}
	if err := app.Run(context.Background(), args); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(historyFile)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var report struct {
		Train []float64 `json:"train_loss"`
		Valid []float64 `json:"valid_loss"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(report.Train) != 1 || len(report.Valid) != 1 {
		t.Fatalf("expected one epoch per phase, got %s", data)
	}
}
