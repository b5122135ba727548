package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"warpdrive-trainer/internal/config"
	"warpdrive-trainer/internal/dataset"
	"warpdrive-trainer/internal/device"
	"warpdrive-trainer/internal/logger"
	"warpdrive-trainer/internal/model"
	"warpdrive-trainer/internal/status"
	"warpdrive-trainer/internal/trainer"
)

func trainCmd() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Run train/validation/test epochs",
		Flags: append(trainFlags(), loggingFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.ApplyOverrides(overrides(cmd))
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			log, err := logger.Build(os.Stderr, cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			return runTraining(logger.WithContext(ctx, log), cfg)
		},
	}
}

func runTraining(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx).With("run", cfg.RunName)

	data, err := loadData(ctx, cfg, log)
	if err != nil {
		return err
	}

	kind, err := device.Parse(cfg.Device)
	if err != nil {
		return err
	}
	m := model.NewClassifier(cfg.NumClasses, data.featureSize, cfg.Dropout, cfg.Seed)
	tr, err := trainer.New(m, data.train, trainer.Options{
		LR:           cfg.LR,
		Momentum:     cfg.Momentum,
		WeightDecay:  cfg.WeightDecay,
		WarmupEpochs: cfg.WarmupEpochs,
		Device:       kind,
		EvalNoGrad:   cfg.EvalNoGrad,
		LogEvery:     cfg.LogEvery,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	info := device.Describe(tr.Device())
	log.Info("device selected",
		"device", string(info.Kind),
		"cpu", info.Brand,
		"cores", info.PhysicalCores,
		"simd", fmt.Sprint(info.SIMD),
	)

	runCfg := trainer.RunConfig{
		Epochs:      cfg.Epochs,
		Train:       data.train,
		Valid:       data.valid,
		Test:        data.test,
		HistoryPath: cfg.HistoryPath,
	}

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if cfg.StatusAddr != "" {
		srv := status.NewServer(tr, info)
		g.Go(func() error {
			log.Info("status API listening", "address", cfg.StatusAddr)
			err := srv.Serve(serverCtx, cfg.StatusAddr)
			if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		defer stopServer()
		return tr.Run(gctx, runCfg)
	})
	return g.Wait()
}

type splits struct {
	train       dataset.Loader
	valid       dataset.Loader
	test        dataset.Loader
	featureSize int
}

func loadData(ctx context.Context, cfg *config.Config, log logger.Logger) (splits, error) {
	var trainEx, validEx, testEx []dataset.Example
	if cfg.SyntheticSamples > 0 {
		all := dataset.Synthetic(cfg.SyntheticSamples, cfg.NumClasses, dataset.FeatureSize, cfg.Seed)
		trainEx, validEx = dataset.Split(all, cfg.ValidSplit, cfg.Seed)
		log.Info("synthetic dataset", "train", len(trainEx), "valid", len(validEx))
	} else {
		var err error
		if trainEx, err = loadRoots(ctx, cfg, log, cfg.TrainRoots); err != nil {
			return splits{}, err
		}
		if cfg.ValidRoot != "" {
			if validEx, err = loadRoots(ctx, cfg, log, []string{cfg.ValidRoot}); err != nil {
				return splits{}, err
			}
		} else {
			trainEx, validEx = dataset.Split(trainEx, cfg.ValidSplit, cfg.Seed)
		}
		if cfg.TestRoot != "" {
			if testEx, err = loadRoots(ctx, cfg, log, []string{cfg.TestRoot}); err != nil {
				return splits{}, err
			}
		}
	}

	out := splits{
		train:       dataset.Batches(trainEx, cfg.BatchSize),
		featureSize: dataset.FeatureSize,
	}
	if len(validEx) > 0 {
		out.valid = dataset.Batches(validEx, cfg.BatchSize)
	}
	if len(testEx) > 0 {
		out.test = dataset.Batches(testEx, cfg.BatchSize)
	}
	return out, nil
}

func loadRoots(ctx context.Context, cfg *config.Config, log logger.Logger, roots []string) ([]dataset.Example, error) {
	byRoot, err := dataset.DiscoverByRoot(roots)
	if err != nil {
		return nil, err
	}
	res, err := dataset.Load(ctx, dataset.LoadOptions{
		Roots:      byRoot,
		Seed:       cfg.Seed,
		NumWorkers: cfg.NumWorkers,
		NumClasses: cfg.NumClasses,
	})
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", roots, err)
	}
	log.Info("dataset loaded",
		"roots", fmt.Sprint(roots),
		"shards", res.Shards,
		"examples", len(res.Examples),
		"skipped", res.Skipped,
	)
	if len(res.Examples) == 0 {
		return nil, fmt.Errorf("no decodable samples under %v", roots)
	}
	return res.Examples, nil
}
