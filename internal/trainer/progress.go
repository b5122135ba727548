package trainer

import (
	"time"

	"warpdrive-trainer/internal/device"
)

// Progress is a point-in-time view of a trainer, safe to read from other
// goroutines through Trainer.Status.
type Progress struct {
	RunID         string      `json:"run_id"`
	Device        device.Kind `json:"device"`
	Running       bool        `json:"running"`
	Epoch         int         `json:"epoch"`
	Epochs        int         `json:"epochs"`
	Phase         Phase       `json:"phase,omitempty"`
	Batch         int         `json:"batch"`
	Batches       int         `json:"batches"`
	WarmupStep    int         `json:"warmup_step"`
	WarmupTotal   int         `json:"warmup_total"`
	LearningRates []float64   `json:"learning_rates"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// publish applies update to the shared progress together with the current
// schedule state. It must be called from the goroutine driving the trainer.
func (t *Trainer) publish(update func(p *Progress)) {
	lrs := t.warmup.LRs()
	step := t.warmup.LastStep()

	t.mu.Lock()
	defer t.mu.Unlock()
	update(&t.progress)
	t.progress.RunID = t.runID
	t.progress.Device = t.device
	t.progress.WarmupStep = step
	t.progress.WarmupTotal = t.warmup.TotalIters()
	t.progress.LearningRates = lrs
	t.progress.UpdatedAt = time.Now()
}

// Status returns a copy of the latest progress.
func (t *Trainer) Status() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.progress
	p.LearningRates = append([]float64(nil), t.progress.LearningRates...)
	return p
}
