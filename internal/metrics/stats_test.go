package metrics

import (
	"math"
	"testing"
	"time"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond, 1.2, 0.01)
	w.Record(64, 10*time.Millisecond, 20*time.Millisecond, 0.8, 0.02)
	snap := w.Snapshot()
	if math.Abs(snap.SamplesPerSec-2133.3333) > 1 {
		t.Fatalf("unexpected throughput %.2f", snap.SamplesPerSec)
	}
	if math.Abs(snap.MeanLoss-1.0) > 1e-12 {
		t.Fatalf("expected mean loss 1.0, got %.4f", snap.MeanLoss)
	}
	if snap.LastLoss != 0.8 || snap.LR != 0.02 {
		t.Fatalf("unexpected last values loss=%.2f lr=%.2f", snap.LastLoss, snap.LR)
	}
	if w.Steps() != 0 || w.samples != 0 {
		t.Fatalf("window was not reset")
	}
}

func TestWindowEmptySnapshot(t *testing.T) {
	var w Window
	snap := w.Snapshot()
	if snap.SamplesPerSec != 0 || snap.MeanLoss != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
