package optim

import (
	"errors"
	"fmt"

	"warpdrive-trainer/internal/model"
)

// ParamGroup is a set of parameters sharing one learning rate.
type ParamGroup struct {
	Params []*model.Param
	// LR is the rate used by the next Step. Schedulers rewrite it.
	LR float64
	// InitialLR is the rate the group was configured with.
	InitialLR float64
}

// Optimizer exposes parameter groups to schedulers.
type Optimizer interface {
	ParamGroups() []*ParamGroup
}

// SGDOptions tunes the update rule.
type SGDOptions struct {
	Momentum    float64
	WeightDecay float64
}

// SGD is stochastic gradient descent with optional momentum and L2 decay.
type SGD struct {
	groups   []*ParamGroup
	opts     SGDOptions
	velocity map[*model.Param][]float64
}

// NewSGD builds an optimizer with a single parameter group.
func NewSGD(params []*model.Param, lr float64, opts SGDOptions) (*SGD, error) {
	return NewSGDGroups([]*ParamGroup{{Params: params, LR: lr}}, opts)
}

// NewSGDGroups builds an optimizer over explicit groups. Each group's LR is
// recorded as its InitialLR.
func NewSGDGroups(groups []*ParamGroup, opts SGDOptions) (*SGD, error) {
	if len(groups) == 0 {
		return nil, errors.New("optim: no parameter groups")
	}
	if opts.Momentum < 0 {
		return nil, fmt.Errorf("optim: momentum must be >= 0 (got %g)", opts.Momentum)
	}
	if opts.WeightDecay < 0 {
		return nil, fmt.Errorf("optim: weight decay must be >= 0 (got %g)", opts.WeightDecay)
	}
	for i, g := range groups {
		if g.LR <= 0 {
			return nil, fmt.Errorf("optim: group %d learning rate must be > 0 (got %g)", i, g.LR)
		}
		if len(g.Params) == 0 {
			return nil, fmt.Errorf("optim: group %d has no parameters", i)
		}
		g.InitialLR = g.LR
	}
	return &SGD{
		groups:   groups,
		opts:     opts,
		velocity: make(map[*model.Param][]float64),
	}, nil
}

func (s *SGD) ParamGroups() []*ParamGroup { return s.groups }

// ZeroGrad clears the gradients of every managed parameter.
func (s *SGD) ZeroGrad() {
	for _, g := range s.groups {
		for _, p := range g.Params {
			p.ZeroGrad()
		}
	}
}

// Step applies one update using the current gradients.
func (s *SGD) Step() {
	for _, g := range s.groups {
		for _, p := range g.Params {
			s.update(p, g.LR)
		}
	}
}

func (s *SGD) update(p *model.Param, lr float64) {
	var v []float64
	if s.opts.Momentum != 0 {
		v = s.velocity[p]
		if v == nil {
			v = make([]float64, len(p.Data))
			s.velocity[p] = v
		}
	}
	for i := range p.Data {
		d := p.Grad[i]
		if s.opts.WeightDecay != 0 {
			d += s.opts.WeightDecay * p.Data[i]
		}
		if v != nil {
			v[i] = s.opts.Momentum*v[i] + d
			d = v[i]
		}
		p.Data[i] -= lr * d
	}
}
