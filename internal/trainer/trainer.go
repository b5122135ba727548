package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"warpdrive-trainer/internal/dataset"
	"warpdrive-trainer/internal/device"
	"warpdrive-trainer/internal/logger"
	"warpdrive-trainer/internal/metrics"
	"warpdrive-trainer/internal/model"
	"warpdrive-trainer/internal/optim"
)

// Phase labels an epoch.
type Phase string

const (
	PhaseTraining   Phase = "training"
	PhaseValidation Phase = "validation"
	PhaseTest       Phase = "test"
)

const defaultWarmupEpochs = 5

// ErrNonFiniteLoss is matched by every *NonFiniteLossError.
var ErrNonFiniteLoss = errors.New("non-finite loss")

// NonFiniteLossError aborts a training epoch whose loss became infinite.
// NaN losses are not fatal and flow into the epoch average.
type NonFiniteLossError struct {
	Phase Phase
	Batch int
	Loss  float64
}

func (e *NonFiniteLossError) Error() string {
	return fmt.Sprintf("non-finite loss %v at batch %d, stop %s", e.Loss, e.Batch, e.Phase)
}

func (e *NonFiniteLossError) Unwrap() error { return ErrNonFiniteLoss }

// Diagnostic is the one-line message printed before the process exits.
func (e *NonFiniteLossError) Diagnostic() string {
	return fmt.Sprintf("[Error] nan loss, stop %s.", e.Phase)
}

// Options configures a Trainer.
type Options struct {
	LR           float64
	Momentum     float64
	WeightDecay  float64
	WarmupEpochs int
	Device       device.Kind
	// Criterion defaults to softmax cross-entropy.
	Criterion model.Criterion
	// EvalNoGrad skips backward and optimizer steps during validation and test.
	EvalNoGrad bool
	// LogEvery emits a debug progress line every N batches; 0 disables it.
	LogEvery int
	Logger   logger.Logger
	RunID    string
}

// Trainer binds a model, SGD, and a linear warm-up schedule, and runs epochs
// over batch loaders while recording the mean loss of each epoch.
type Trainer struct {
	model        model.Model
	optimizer    *optim.SGD
	warmup       *optim.WarmUp
	criterion    model.Criterion
	device       device.Kind
	warmupEpochs int
	evalNoGrad   bool
	logEvery     int
	log          logger.Logger
	runID        string
	history      *History

	mu       sync.RWMutex
	progress Progress
}

// New builds a trainer for m. trainLoader fixes the warm-up length at
// trainLoader.Len() * WarmupEpochs steps.
func New(m model.Model, trainLoader dataset.Loader, opts Options) (*Trainer, error) {
	if m == nil {
		return nil, errors.New("trainer: model is nil")
	}
	if trainLoader == nil {
		return nil, errors.New("trainer: training loader is nil")
	}
	if opts.WarmupEpochs <= 0 {
		opts.WarmupEpochs = defaultWarmupEpochs
	}
	if opts.Criterion == nil {
		opts.Criterion = model.CrossEntropy{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	dev, err := device.Resolve(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	if err := m.To(dev); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	sgd, err := optim.NewSGD(m.Parameters(), opts.LR, optim.SGDOptions{
		Momentum:    opts.Momentum,
		WeightDecay: opts.WeightDecay,
	})
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	warmup := optim.NewWarmUp(sgd, trainLoader.Len()*opts.WarmupEpochs, -1)

	t := &Trainer{
		model:        m,
		optimizer:    sgd,
		warmup:       warmup,
		criterion:    opts.Criterion,
		device:       dev,
		warmupEpochs: opts.WarmupEpochs,
		evalNoGrad:   opts.EvalNoGrad,
		logEvery:     opts.LogEvery,
		log:          opts.Logger.With("run_id", opts.RunID),
		runID:        opts.RunID,
		history:      &History{},
	}
	t.publish(func(p *Progress) {})
	return t, nil
}

// Train runs one training epoch, advancing the warm-up schedule before every
// batch when warmup is set, and appends the mean loss to the train history.
func (t *Trainer) Train(ctx context.Context, loader dataset.Loader, warmup bool) (float64, error) {
	t.model.SetTraining(true)
	return t.epoch(ctx, loader, warmup, PhaseTraining)
}

// Valid runs one evaluation epoch and appends to the validation history.
func (t *Trainer) Valid(ctx context.Context, loader dataset.Loader) (float64, error) {
	t.model.SetTraining(false)
	return t.epoch(ctx, loader, false, PhaseValidation)
}

// Test runs one evaluation epoch and appends to the test history.
func (t *Trainer) Test(ctx context.Context, loader dataset.Loader) (float64, error) {
	t.model.SetTraining(false)
	return t.epoch(ctx, loader, false, PhaseTest)
}

func (t *Trainer) epoch(ctx context.Context, loader dataset.Loader, warmup bool, phase Phase) (float64, error) {
	start := time.Now()
	loss, err := t.runEpoch(ctx, loader, warmup, phase)
	if err != nil {
		return loss, err
	}
	epoch := t.history.Append(phase, loss)
	t.log.Info("epoch finished",
		"phase", string(phase),
		"epoch", epoch,
		"loss", loss,
		"lr", t.currentLR(),
		"warmup_step", t.warmup.LastStep(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return loss, nil
}

// runEpoch iterates loader once and returns the mean batch loss. An empty
// loader yields NaN.
func (t *Trainer) runEpoch(ctx context.Context, loader dataset.Loader, warmup bool, phase Phase) (float64, error) {
	n := loader.Len()
	if n == 0 {
		t.log.Warn("empty loader, epoch loss is undefined", "phase", string(phase))
	}
	t.publish(func(p *Progress) {
		p.Phase = phase
		p.Batch = 0
		p.Batches = n
	})

	var window metrics.Window
	sum := 0.0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		startData := time.Now()
		if warmup {
			t.warmup.Step()
		}
		batch := loader.Batch(i).To(t.device)
		dataTime := time.Since(startData)

		startCompute := time.Now()
		loss, err := t.step(batch, phase, i)
		if err != nil {
			return loss, err
		}
		computeTime := time.Since(startCompute)
		sum += loss

		lr := t.currentLR()
		window.Record(batch.Len(), dataTime, computeTime, loss, lr)
		t.publish(func(p *Progress) { p.Batch = i + 1 })

		if t.logEvery > 0 && (i+1)%t.logEvery == 0 {
			snap := window.Snapshot()
			t.log.Debug("progress",
				"phase", string(phase),
				"batch", i+1,
				"batches", n,
				"samples_per_sec", snap.SamplesPerSec,
				"data_ms", snap.AvgDataMS,
				"compute_ms", snap.AvgComputeMS,
				"loss", snap.MeanLoss,
				"lr", snap.LR,
			)
		}
	}
	return sum / float64(n), nil
}

func (t *Trainer) step(batch model.Batch, phase Phase, idx int) (float64, error) {
	grad := phase == PhaseTraining || !t.evalNoGrad

	outputs := t.model.Forward(batch.Inputs)
	if grad {
		t.optimizer.ZeroGrad()
	}
	loss, gradOutputs := t.criterion.Loss(outputs, batch.Labels)
	if phase == PhaseTraining && math.IsInf(loss, 0) {
		t.log.Error("non-finite training loss", "batch", idx, "loss", loss)
		return loss, &NonFiniteLossError{Phase: phase, Batch: idx, Loss: loss}
	}
	if grad {
		t.model.Backward(gradOutputs)
		t.optimizer.Step()
	}
	return loss, nil
}

func (t *Trainer) currentLR() float64 {
	return t.optimizer.ParamGroups()[0].LR
}

// RunID identifies this trainer in logs and reports.
func (t *Trainer) RunID() string { return t.runID }

// Device returns the compute target the model was placed on.
func (t *Trainer) Device() device.Kind { return t.device }

// Model returns the trained model.
func (t *Trainer) Model() model.Model { return t.model }

// WarmUp exposes the schedule for inspection.
func (t *Trainer) WarmUp() *optim.WarmUp { return t.warmup }

// WarmupEpochs returns how many leading epochs the schedule spans.
func (t *Trainer) WarmupEpochs() int { return t.warmupEpochs }

// History returns the loss histories.
func (t *Trainer) History() *History { return t.history }

// TrainLoss returns a copy of the per-epoch training losses.
func (t *Trainer) TrainLoss() []float64 { return t.history.Losses(PhaseTraining) }

// ValidLoss returns a copy of the per-epoch validation losses.
func (t *Trainer) ValidLoss() []float64 { return t.history.Losses(PhaseValidation) }

// TestLoss returns a copy of the per-epoch test losses.
func (t *Trainer) TestLoss() []float64 { return t.history.Losses(PhaseTest) }
