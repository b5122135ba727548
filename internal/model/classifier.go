package model

import (
	"fmt"
	"math/rand"

	"warpdrive-trainer/internal/device"
)

// Classifier is a linear softmax classifier with optional input dropout.
type Classifier struct {
	numClasses int
	inputSize  int
	dropout    float64
	weights    *Param
	bias       *Param
	training   bool
	device     device.Kind
	rng        *rand.Rand

	lastInputs [][]float64
}

// NewClassifier constructs the model with small random weights.
func NewClassifier(numClasses, inputSize int, dropout float64, seed int64) *Classifier {
	if numClasses <= 0 {
		numClasses = 10
	}
	if inputSize <= 0 {
		inputSize = 64
	}
	if dropout < 0 || dropout >= 1 {
		dropout = 0
	}
	rng := rand.New(rand.NewSource(seed))
	weights := NewParam("linear.weight", numClasses*inputSize)
	for i := range weights.Data {
		weights.Data[i] = (rng.Float64()*2 - 1) * 0.01
	}
	return &Classifier{
		numClasses: numClasses,
		inputSize:  inputSize,
		dropout:    dropout,
		weights:    weights,
		bias:       NewParam("linear.bias", numClasses),
		training:   true,
		device:     device.CPU,
		rng:        rng,
	}
}

// NumClasses returns the output width.
func (m *Classifier) NumClasses() int { return m.numClasses }

// InputSize returns the expected feature width.
func (m *Classifier) InputSize() int { return m.inputSize }

func (m *Classifier) Parameters() []*Param { return []*Param{m.weights, m.bias} }

func (m *Classifier) SetTraining(training bool) { m.training = training }

func (m *Classifier) Training() bool { return m.training }

// Device returns where the parameters live.
func (m *Classifier) Device() device.Kind { return m.device }

func (m *Classifier) To(d device.Kind) error {
	if !device.Has(d) {
		return fmt.Errorf("model: device %s not available", d)
	}
	m.device = d
	return nil
}

// Forward computes logits. Feature rows shorter than the input size are
// zero-padded and longer rows are truncated.
func (m *Classifier) Forward(inputs [][]float64) [][]float64 {
	m.lastInputs = make([][]float64, len(inputs))
	out := make([][]float64, len(inputs))
	for i, row := range inputs {
		x := m.prepare(row)
		m.lastInputs[i] = x
		logits := make([]float64, m.numClasses)
		for c := 0; c < m.numClasses; c++ {
			sum := m.bias.Data[c]
			w := m.weights.Data[c*m.inputSize : (c+1)*m.inputSize]
			for j, v := range x {
				sum += w[j] * v
			}
			logits[c] = sum
		}
		out[i] = logits
	}
	return out
}

func (m *Classifier) prepare(row []float64) []float64 {
	x := make([]float64, m.inputSize)
	copy(x, row)
	if !m.training || m.dropout == 0 {
		return x
	}
	scale := 1 / (1 - m.dropout)
	for j := range x {
		if m.rng.Float64() < m.dropout {
			x[j] = 0
		} else {
			x[j] *= scale
		}
	}
	return x
}

func (m *Classifier) Backward(gradOutputs [][]float64) {
	for i, g := range gradOutputs {
		if i >= len(m.lastInputs) {
			break
		}
		x := m.lastInputs[i]
		for c := 0; c < m.numClasses && c < len(g); c++ {
			m.bias.Grad[c] += g[c]
			w := m.weights.Grad[c*m.inputSize : (c+1)*m.inputSize]
			for j, v := range x {
				w[j] += g[c] * v
			}
		}
	}
}
