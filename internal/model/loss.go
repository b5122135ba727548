package model

import (
	"fmt"
	"math"
)

// CrossEntropy is softmax cross-entropy averaged over the batch.
// It panics on a target outside [0, classes) or a targets/outputs length mismatch.
type CrossEntropy struct{}

func (CrossEntropy) Loss(outputs [][]float64, targets []int) (float64, [][]float64) {
	n := len(outputs)
	if len(targets) != n {
		panic(fmt.Sprintf("model: cross-entropy got %d targets for %d outputs", len(targets), n))
	}
	grads := make([][]float64, n)
	if n == 0 {
		return 0, grads
	}
	total := 0.0
	inv := 1 / float64(n)
	for i, logits := range outputs {
		label := targets[i]
		if label < 0 || label >= len(logits) {
			panic(fmt.Sprintf("model: target %d out of range for %d classes", label, len(logits)))
		}
		probs, lse := softmax(logits)
		total += lse - logits[label]
		g := make([]float64, len(logits))
		for c, p := range probs {
			g[c] = p * inv
		}
		g[label] -= inv
		grads[i] = g
	}
	return total * inv, grads
}

// softmax returns probabilities and the log-sum-exp of logits.
// An infinite maximum is the log-sum-exp itself; probability mass is then
// shared by the logits equal to it.
func softmax(logits []float64) ([]float64, float64) {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float64, len(logits))
	if math.IsInf(maxLogit, 0) {
		ties := 0
		for _, v := range logits {
			if v == maxLogit {
				ties++
			}
		}
		for i, v := range logits {
			if v == maxLogit {
				out[i] = 1 / float64(ties)
			}
		}
		return out, maxLogit
	}
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, maxLogit + math.Log(sum)
}
