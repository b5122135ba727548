package optim

import (
	"math"
	"testing"

	"warpdrive-trainer/internal/model"
)

func newTestSGD(t *testing.T, lrs ...float64) *SGD {
	t.Helper()
	groups := make([]*ParamGroup, len(lrs))
	for i, lr := range lrs {
		groups[i] = &ParamGroup{Params: []*model.Param{model.NewParam("p", 1)}, LR: lr}
	}
	opt, err := NewSGDGroups(groups, SGDOptions{})
	if err != nil {
		t.Fatalf("NewSGDGroups: %v", err)
	}
	return opt
}

func TestWarmUpStartsAtZero(t *testing.T) {
	opt := newTestSGD(t, 0.1)
	w := NewWarmUp(opt, 10, -1)
	if w.LastStep() != 0 {
		t.Fatalf("last step=%d want 0", w.LastStep())
	}
	if lr := opt.ParamGroups()[0].LR; lr != 0 {
		t.Fatalf("initial lr=%g want 0", lr)
	}
}

func TestWarmUpLinearity(t *testing.T) {
	const total = 8
	opt := newTestSGD(t, 0.4, 2.0)
	w := NewWarmUp(opt, total, -1)
	for s := 1; s <= total; s++ {
		w.Step()
		for i, base := range []float64{0.4, 2.0} {
			want := base * float64(s) / (total + 1e-8)
			got := opt.ParamGroups()[i].LR
			if math.Abs(got-want) > 1e-12 {
				t.Fatalf("step %d group %d: lr=%g want %g", s, i, got, want)
			}
		}
	}
	if w.LastStep() != total {
		t.Fatalf("last step=%d want %d", w.LastStep(), total)
	}
}

func TestWarmUpOverrunIsUnclamped(t *testing.T) {
	opt := newTestSGD(t, 1.0)
	w := NewWarmUp(opt, 10, -1)
	for i := 0; i < 15; i++ {
		w.Step()
	}
	if got := w.LRs()[0]; math.Abs(got-1.5) > 1e-6 {
		t.Fatalf("lr after 15 steps=%g want ~1.5", got)
	}
}

func TestWarmUpZeroTotalItersStaysFinite(t *testing.T) {
	opt := newTestSGD(t, 1.0)
	w := NewWarmUp(opt, 0, -1)
	w.Step()
	lr := w.LRs()[0]
	if math.IsInf(lr, 0) || math.IsNaN(lr) {
		t.Fatalf("lr=%g should be finite", lr)
	}
	if lr < 1e7 {
		t.Fatalf("lr=%g expected a huge multiplier", lr)
	}
}

func TestWarmUpResumeOffset(t *testing.T) {
	opt := newTestSGD(t, 1.0)
	w := NewWarmUp(opt, 10, 4)
	if w.LastStep() != 5 {
		t.Fatalf("last step=%d want 5", w.LastStep())
	}
	if got := w.LRs()[0]; math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("lr=%g want 0.5", got)
	}
	if got := w.BaseLRs()[0]; got != 1.0 {
		t.Fatalf("base lr=%g", got)
	}
}
