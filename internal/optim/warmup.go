package optim

// warmupEpsilon keeps the ramp finite when totalIters is zero.
const warmupEpsilon = 1e-8

// WarmUp ramps every group's learning rate linearly from zero towards its
// base rate over totalIters steps. The ramp is not clamped: stepping past
// totalIters keeps scaling the rate above the base.
type WarmUp struct {
	opt        Optimizer
	totalIters int
	lastStep   int
	baseLRs    []float64
}

// NewWarmUp attaches a warm-up schedule to opt. lastStep is the index of the
// last completed step, -1 for a fresh run. Construction performs one step,
// so a fresh schedule starts at step 0 with every rate at zero.
func NewWarmUp(opt Optimizer, totalIters, lastStep int) *WarmUp {
	groups := opt.ParamGroups()
	base := make([]float64, len(groups))
	for i, g := range groups {
		if g.InitialLR == 0 {
			g.InitialLR = g.LR
		}
		base[i] = g.InitialLR
	}
	w := &WarmUp{
		opt:        opt,
		totalIters: totalIters,
		lastStep:   lastStep,
		baseLRs:    base,
	}
	w.Step()
	return w
}

// Step advances the counter and rewrites each group's rate.
func (w *WarmUp) Step() {
	w.lastStep++
	for i, g := range w.opt.ParamGroups() {
		g.LR = w.baseLRs[i] * float64(w.lastStep) / (float64(w.totalIters) + warmupEpsilon)
	}
}

// LastStep returns the step counter.
func (w *WarmUp) LastStep() int { return w.lastStep }

// TotalIters returns the configured ramp length.
func (w *WarmUp) TotalIters() int { return w.totalIters }

// BaseLRs returns the rates the ramp converges to.
func (w *WarmUp) BaseLRs() []float64 {
	return append([]float64(nil), w.baseLRs...)
}

// LRs returns the current per-group learning rates.
func (w *WarmUp) LRs() []float64 {
	groups := w.opt.ParamGroups()
	out := make([]float64, len(groups))
	for i, g := range groups {
		out[i] = g.LR
	}
	return out
}
