// Package decision provides the probabilistic action classifier used for
// ambiguous events. It is a multinomial logistic regression fitted once, by
// deterministic full-batch gradient descent, on a small fixed labeled set.
package decision

import (
	"math"
	"math/rand"
	"sync"

	"github.com/talgya/site-awareness/internal/site"
)

// ModelVersion identifies the training set and fitting parameters.
// Bump it whenever either changes.
const ModelVersion = "mnl-v1"

// NumFeatures is the width of the feature vector.
const NumFeatures = 11

// Features is the classifier input, in this order: workload, fatigue,
// severity, experience, time pressure, resource availability, risk
// tolerance, stress, recent-hazard flag, phase encoding, criticality flag.
type Features [NumFeatures]float64

// Probs is a distribution over site.Actions order.
type Probs [site.NumActions]float64

// Sample is one labeled training row.
type Sample struct {
	X     Features
	Label site.ActionKind
}

// FitOptions control training.
type FitOptions struct {
	Iterations   int
	LearningRate float64
	C            float64 // inverse L2 strength; intercepts are not penalized
}

// DefaultFitOptions mirror an lbfgs fit with C=1 closely enough for sampling.
func DefaultFitOptions() FitOptions {
	return FitOptions{Iterations: 4000, LearningRate: 0.05, C: 1.0}
}

// Model holds fitted coefficients, one row per action.
type Model struct {
	Weights   [site.NumActions]Features
	Intercept [site.NumActions]float64
}

// Fit trains a model on samples. Training is deterministic.
func Fit(samples []Sample, opts FitOptions) *Model {
	m := &Model{}
	if len(samples) == 0 {
		return m
	}
	n := float64(len(samples))
	l2 := 0.0
	if opts.C > 0 {
		l2 = 1 / (opts.C * n)
	}

	for it := 0; it < opts.Iterations; it++ {
		var gradW [site.NumActions]Features
		var gradB [site.NumActions]float64

		for _, s := range samples {
			p := m.Predict(s.X)
			for k := 0; k < site.NumActions; k++ {
				diff := p[k]
				if site.ActionKind(k) == s.Label {
					diff -= 1
				}
				gradB[k] += diff
				for j := 0; j < NumFeatures; j++ {
					gradW[k][j] += diff * s.X[j]
				}
			}
		}

		for k := 0; k < site.NumActions; k++ {
			m.Intercept[k] -= opts.LearningRate * gradB[k] / n
			for j := 0; j < NumFeatures; j++ {
				g := gradW[k][j]/n + l2*m.Weights[k][j]
				m.Weights[k][j] -= opts.LearningRate * g
			}
		}
	}
	return m
}

// Predict returns the softmax distribution over actions.
func (m *Model) Predict(x Features) Probs {
	var logits [site.NumActions]float64
	maxLogit := math.Inf(-1)
	for k := 0; k < site.NumActions; k++ {
		z := m.Intercept[k]
		for j := 0; j < NumFeatures; j++ {
			z += m.Weights[k][j] * x[j]
		}
		logits[k] = z
		if z > maxLogit {
			maxLogit = z
		}
	}

	var p Probs
	sum := 0.0
	for k := range logits {
		p[k] = math.Exp(logits[k] - maxLogit)
		sum += p[k]
	}
	for k := range p {
		p[k] /= sum
	}
	return p
}

// Choose samples an action from the predicted distribution.
func (m *Model) Choose(x Features, rng *rand.Rand) (site.ActionKind, Probs) {
	p := m.Predict(x)
	return SampleAction(p, rng), p
}

// SampleAction draws from a categorical distribution in site.Actions order.
func SampleAction(p Probs, rng *rand.Rand) site.ActionKind {
	r := rng.Float64()
	acc := 0.0
	for k, pk := range p {
		acc += pk
		if r < acc {
			return site.Actions[k]
		}
	}
	return site.Actions[site.NumActions-1]
}

var (
	defaultOnce  sync.Once
	defaultModel *Model
)

// Default returns the model fitted on the built-in training set. It is
// trained once per process and shared read-only between runs.
func Default() *Model {
	defaultOnce.Do(func() {
		defaultModel = Fit(TrainingSet(), DefaultFitOptions())
	})
	return defaultModel
}
