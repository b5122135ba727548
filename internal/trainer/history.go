package trainer

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// History keeps the append-only per-epoch losses of each phase.
type History struct {
	mu    sync.RWMutex
	train []float64
	valid []float64
	test  []float64
}

func (h *History) slot(p Phase) *[]float64 {
	switch p {
	case PhaseTraining:
		return &h.train
	case PhaseValidation:
		return &h.valid
	case PhaseTest:
		return &h.test
	default:
		panic(fmt.Sprintf("trainer: unknown phase %q", p))
	}
}

// Append records loss for phase and returns the new length.
func (h *History) Append(p Phase, loss float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.slot(p)
	*s = append(*s, loss)
	return len(*s)
}

// Losses returns a copy of the history of p.
func (h *History) Losses(p Phase) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), *h.slot(p)...)
}

// Loss marshals non-finite values as strings since JSON has no NaN or Inf.
type Loss float64

func (l Loss) MarshalJSON() ([]byte, error) {
	f := float64(l)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Report is the serialized form of a History.
type Report struct {
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Train     []Loss    `json:"train_loss"`
	Valid     []Loss    `json:"valid_loss"`
	Test      []Loss    `json:"test_loss"`
}

// Report snapshots the history.
func (h *History) Report(runID string) Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Report{
		RunID:     runID,
		UpdatedAt: time.Now().UTC(),
		Train:     toLosses(h.train),
		Valid:     toLosses(h.valid),
		Test:      toLosses(h.test),
	}
}

func toLosses(v []float64) []Loss {
	out := make([]Loss, len(v))
	for i, f := range v {
		out[i] = Loss(f)
	}
	return out
}

// WriteJSON encodes the report for runID to w.
func (h *History) WriteJSON(w io.Writer, runID string) error {
	data, err := json.MarshalIndent(h.Report(runID), "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteFile atomically replaces path with the JSON report.
func (h *History) WriteFile(path, runID string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := h.WriteJSON(tmp, runID); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename history file: %w", err)
	}
	return nil
}
