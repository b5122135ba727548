package main

import (
	"github.com/urfave/cli/v3"

	"warpdrive-trainer/internal/config"
)

var (
	configPath       string
	trainRoots       []string
	validRoot        string
	testRoot         string
	syntheticSamples int
	batchSize        int
	numWorkers       int
	epochs           int
	learningRate     float64
	warmupEpochs     int
	seed             int64
	deviceName       string
	logEvery         int
	logLevel         string
	logFormat        string
	historyPath      string
	statusAddr       string
)

func trainFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to YAML config",
			Destination: &configPath,
		},
		&cli.StringSliceFlag{
			Name:        "train-root",
			Usage:       "directory of training shards (repeatable)",
			Destination: &trainRoots,
		},
		&cli.StringFlag{Name: "valid-root", Usage: "directory of validation shards", Destination: &validRoot},
		&cli.StringFlag{Name: "test-root", Usage: "directory of test shards", Destination: &testRoot},
		&cli.IntFlag{
			Name:        "synthetic",
			Usage:       "train on N generated samples instead of shards",
			Destination: &syntheticSamples,
		},
		&cli.IntFlag{Name: "batch-size", Usage: "batch size", Destination: &batchSize},
		&cli.IntFlag{Name: "num-workers", Usage: "shard decode workers", Destination: &numWorkers},
		&cli.IntFlag{Name: "epochs", Usage: "number of epochs", Destination: &epochs},
		&cli.Float64Flag{Name: "lr", Usage: "base learning rate", Destination: &learningRate},
		&cli.IntFlag{Name: "warmup-epochs", Usage: "epochs spanned by the warm-up ramp", Destination: &warmupEpochs},
		&cli.Int64Flag{Name: "seed", Usage: "PRNG seed", Destination: &seed},
		&cli.StringFlag{Name: "device", Usage: "compute device (auto, cpu, cuda)", Destination: &deviceName},
		&cli.IntFlag{Name: "log-every", Usage: "log progress every N batches (0 disables)", Destination: &logEvery},
		&cli.StringFlag{Name: "history", Usage: "write the loss history JSON here", Destination: &historyPath},
		&cli.StringFlag{Name: "status-addr", Usage: "serve the status API on this address", Destination: &statusAddr},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, text, json)",
			Destination: &logFormat,
		},
	}
}

// overrides collects the flags the user set explicitly.
func overrides(cmd *cli.Command) config.Overrides {
	o := config.Overrides{
		TrainRoots:  trainRoots,
		ValidRoot:   validRoot,
		TestRoot:    testRoot,
		Device:      deviceName,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		HistoryPath: historyPath,
		StatusAddr:  statusAddr,
	}
	intFlag := func(name string, v *int) *int {
		if cmd.IsSet(name) {
			return v
		}
		return nil
	}
	o.SyntheticSamples = intFlag("synthetic", &syntheticSamples)
	o.BatchSize = intFlag("batch-size", &batchSize)
	o.NumWorkers = intFlag("num-workers", &numWorkers)
	o.Epochs = intFlag("epochs", &epochs)
	o.WarmupEpochs = intFlag("warmup-epochs", &warmupEpochs)
	o.LogEvery = intFlag("log-every", &logEvery)
	if cmd.IsSet("lr") {
		o.LR = &learningRate
	}
	if cmd.IsSet("seed") {
		o.Seed = &seed
	}
	return o
}
