package trainer

import (
	"context"
	"errors"
	"fmt"

	"warpdrive-trainer/internal/dataset"
)

// RunConfig describes a full training run.
type RunConfig struct {
	Epochs int
	Train  dataset.Loader
	// Valid and Test are optional.
	Valid dataset.Loader
	Test  dataset.Loader
	// HistoryPath, when set, receives the JSON loss report after every epoch.
	HistoryPath string
}

// Run trains for cfg.Epochs epochs. The warm-up schedule advances during the
// first WarmupEpochs training epochs only. Each epoch is followed by a
// validation and a test pass when those loaders are set.
func (t *Trainer) Run(ctx context.Context, cfg RunConfig) (err error) {
	if cfg.Epochs <= 0 {
		return errors.New("trainer: epochs must be > 0")
	}
	if cfg.Train == nil {
		return errors.New("trainer: training loader is nil")
	}

	t.publish(func(p *Progress) {
		p.Running = true
		p.Epochs = cfg.Epochs
	})
	defer t.publish(func(p *Progress) { p.Running = false })

	defer func() {
		if cfg.HistoryPath == "" {
			return
		}
		if werr := t.history.WriteFile(cfg.HistoryPath, t.runID); werr != nil {
			err = errors.Join(err, werr)
		}
	}()

	t.log.Info("run started",
		"epochs", cfg.Epochs,
		"warmup_epochs", t.warmupEpochs,
		"warmup_iters", t.warmup.TotalIters(),
		"train_batches", cfg.Train.Len(),
		"device", string(t.device),
	)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		t.publish(func(p *Progress) { p.Epoch = epoch })

		if _, err := t.Train(ctx, cfg.Train, epoch <= t.warmupEpochs); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if cfg.Valid != nil {
			if _, err := t.Valid(ctx, cfg.Valid); err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}
		if cfg.Test != nil {
			if _, err := t.Test(ctx, cfg.Test); err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}
		if cfg.HistoryPath != "" && epoch < cfg.Epochs {
			if err := t.history.WriteFile(cfg.HistoryPath, t.runID); err != nil {
				return err
			}
		}
	}

	t.log.Info("run finished", "epochs", cfg.Epochs, "final_lr", t.currentLR())
	return nil
}
