package dataset

import (
	"math/rand"

	"warpdrive-trainer/internal/model"
)

// Loader is a finite, restartable sequence of batches with a known length.
type Loader interface {
	Len() int
	Batch(i int) model.Batch
}

// SliceLoader serves pre-built batches in a fixed order.
type SliceLoader struct {
	batches []model.Batch
}

// NewSliceLoader wraps batches.
func NewSliceLoader(batches []model.Batch) *SliceLoader {
	return &SliceLoader{batches: batches}
}

func (l *SliceLoader) Len() int { return len(l.batches) }

func (l *SliceLoader) Batch(i int) model.Batch { return l.batches[i] }

// Samples returns the number of examples across all batches.
func (l *SliceLoader) Samples() int {
	n := 0
	for _, b := range l.batches {
		n += b.Len()
	}
	return n
}

// Batches groups examples into batches of batchSize. The final batch may be
// smaller.
func Batches(examples []Example, batchSize int) *SliceLoader {
	if batchSize <= 0 {
		batchSize = 1
	}
	batches := make([]model.Batch, 0, (len(examples)+batchSize-1)/batchSize)
	for start := 0; start < len(examples); start += batchSize {
		end := min(start+batchSize, len(examples))
		b := model.Batch{
			Inputs: make([][]float64, 0, end-start),
			Labels: make([]int, 0, end-start),
		}
		for _, ex := range examples[start:end] {
			b.Inputs = append(b.Inputs, ex.Features)
			b.Labels = append(b.Labels, ex.Label)
		}
		batches = append(batches, b)
	}
	return NewSliceLoader(batches)
}

// Split shuffles a copy of examples with seed and holds out fraction of them.
func Split(examples []Example, fraction float64, seed int64) (rest, holdout []Example) {
	n := int(float64(len(examples)) * fraction)
	if fraction <= 0 || n == 0 {
		return examples, nil
	}
	shuffled := append([]Example(nil), examples...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[n:], shuffled[:n]
}

// Synthetic generates n examples drawn from numClasses gaussian blobs in a
// featureSize dimensional space.
func Synthetic(n, numClasses, featureSize int, seed int64) []Example {
	rng := rand.New(rand.NewSource(seed))
	centers := make([][]float64, numClasses)
	for c := range centers {
		centers[c] = make([]float64, featureSize)
		for j := range centers[c] {
			centers[c][j] = rng.Float64()
		}
	}
	out := make([]Example, n)
	for i := range out {
		label := rng.Intn(numClasses)
		features := make([]float64, featureSize)
		for j := range features {
			features[j] = centers[label][j] + rng.NormFloat64()*0.1
		}
		out[i] = Example{Features: features, Label: label}
	}
	return out
}
