package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"warpdrive-trainer/internal/device"
	"warpdrive-trainer/internal/logger"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	RunName string `yaml:"run_name"`

	TrainRoots       []string `yaml:"train_roots"`
	ValidRoot        string   `yaml:"valid_root"`
	TestRoot         string   `yaml:"test_root"`
	ValidSplit       float64  `yaml:"valid_split"`
	SyntheticSamples int      `yaml:"synthetic_samples"`
	NumClasses       int      `yaml:"num_classes"`
	BatchSize        int      `yaml:"batch_size"`
	NumWorkers       int      `yaml:"num_workers"`

	Epochs       int     `yaml:"epochs"`
	LR           float64 `yaml:"lr"`
	Momentum     float64 `yaml:"momentum"`
	WeightDecay  float64 `yaml:"weight_decay"`
	WarmupEpochs int     `yaml:"warmup_epochs"`
	Dropout      float64 `yaml:"dropout"`
	Seed         int64   `yaml:"seed"`
	Device       string  `yaml:"device"`
	EvalNoGrad   bool    `yaml:"eval_no_grad"`

	LogEvery    int    `yaml:"log_every"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	HistoryPath string `yaml:"history_path"`
	StatusAddr  string `yaml:"status_addr"`
}

// Default returns a config with every optional knob filled in.
func Default() *Config {
	return &Config{
		RunName:      "warpdrive",
		ValidSplit:   0.1,
		NumClasses:   10,
		BatchSize:    32,
		NumWorkers:   4,
		Epochs:       20,
		LR:           0.05,
		WarmupEpochs: 5,
		Seed:         42,
		Device:       string(device.Auto),
		LogEvery:     50,
		LogLevel:     "info",
		LogFormat:    "pretty",
	}
}

// Overrides captures CLI supplied values. Nil pointers and empty strings
// leave the file value alone.
type Overrides struct {
	TrainRoots       []string
	ValidRoot        string
	TestRoot         string
	SyntheticSamples *int
	BatchSize        *int
	NumWorkers       *int
	Epochs           *int
	LR               *float64
	WarmupEpochs     *int
	Seed             *int64
	Device           string
	LogEvery         *int
	LogLevel         string
	LogFormat        string
	HistoryPath      string
	StatusAddr       string
}

// Load reads a Config from YAML on top of Default. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides updates c using any set override.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.TrainRoots) > 0 {
		c.TrainRoots = o.TrainRoots
	}
	setString(&c.ValidRoot, o.ValidRoot)
	setString(&c.TestRoot, o.TestRoot)
	setString(&c.Device, o.Device)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogFormat, o.LogFormat)
	setString(&c.HistoryPath, o.HistoryPath)
	setString(&c.StatusAddr, o.StatusAddr)
	setInt(&c.SyntheticSamples, o.SyntheticSamples)
	setInt(&c.BatchSize, o.BatchSize)
	setInt(&c.NumWorkers, o.NumWorkers)
	setInt(&c.Epochs, o.Epochs)
	setInt(&c.WarmupEpochs, o.WarmupEpochs)
	setInt(&c.LogEvery, o.LogEvery)
	if o.LR != nil {
		c.LR = *o.LR
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.TrainRoots) == 0 && c.SyntheticSamples <= 0 {
		return errors.New("train_roots or synthetic_samples must be set")
	}
	if c.SyntheticSamples < 0 {
		return fmt.Errorf("synthetic_samples must be >= 0 (got %d)", c.SyntheticSamples)
	}
	if c.ValidSplit < 0 || c.ValidSplit >= 1 {
		return fmt.Errorf("valid_split must be in [0, 1) (got %g)", c.ValidSplit)
	}
	if c.NumClasses < 2 {
		return fmt.Errorf("num_classes must be >= 2 (got %d)", c.NumClasses)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be > 0 (got %d)", c.NumWorkers)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be > 0 (got %g)", c.LR)
	}
	if c.Momentum < 0 {
		return fmt.Errorf("momentum must be >= 0 (got %g)", c.Momentum)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be >= 0 (got %g)", c.WeightDecay)
	}
	if c.WarmupEpochs <= 0 {
		return fmt.Errorf("warmup_epochs must be > 0 (got %d)", c.WarmupEpochs)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1) (got %g)", c.Dropout)
	}
	if _, err := device.Parse(c.Device); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if err := logger.CheckFormat(c.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("log_every must be >= 0 (got %d)", c.LogEvery)
	}
	return nil
}
