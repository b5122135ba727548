package model

import "warpdrive-trainer/internal/device"

// Batch represents a minibatch of features and labels.
type Batch struct {
	Inputs [][]float64
	Labels []int
	Device device.Kind
}

// Len returns the number of examples in the batch.
func (b Batch) Len() int { return len(b.Inputs) }

// To returns the batch placed on d. Host memory is shared by every device this
// build supports, so only the placement tag changes.
func (b Batch) To(d device.Kind) Batch {
	b.Device = d
	return b
}

// Param is a trainable tensor with its accumulated gradient.
type Param struct {
	Name string
	Data []float64
	Grad []float64
}

// NewParam allocates a zeroed parameter of size n.
func NewParam(name string, n int) *Param {
	return &Param{Name: name, Data: make([]float64, n), Grad: make([]float64, n)}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	clear(p.Grad)
}

// Model is what the trainer needs from a network.
type Model interface {
	// Forward returns one row of class scores per input row.
	Forward(inputs [][]float64) [][]float64
	// Backward accumulates parameter gradients given dLoss/dOutputs from the
	// most recent Forward call.
	Backward(gradOutputs [][]float64)
	Parameters() []*Param
	SetTraining(training bool)
	Training() bool
	To(d device.Kind) error
}

// Criterion scores model outputs against targets.
type Criterion interface {
	// Loss returns the scalar loss and its gradient with respect to outputs.
	// Targets are class indices in [0, len(outputs[i])), one per output row.
	Loss(outputs [][]float64, targets []int) (float64, [][]float64)
}
