package decision

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/site-awareness/internal/site"
)

func argmax(p Probs) site.ActionKind {
	best := 0
	for k := range p {
		if p[k] > p[best] {
			best = k
		}
	}
	return site.Actions[best]
}

func TestPredictIsADistribution(t *testing.T) {
	m := Default()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		var x Features
		x[0] = rng.Float64() * 5
		for j := 1; j < NumFeatures; j++ {
			x[j] = rng.Float64()
		}
		p := m.Predict(x)
		sum := 0.0
		for _, pk := range p {
			assert.GreaterOrEqual(t, pk, 0.0)
			sum += pk
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestDefaultPrefersSubstituteForMildShortage(t *testing.T) {
	x := Features{2, 0.3, 0.5, 0.7, 0.3, 0.8, 0.4, 0.5, 0.0, 0.0, 0.0}
	assert.Equal(t, site.ActionSubstitute, argmax(Default().Predict(x)))
}

func TestFitIsDeterministic(t *testing.T) {
	opts := FitOptions{Iterations: 300, LearningRate: 0.05, C: 1}
	a := Fit(TrainingSet(), opts)
	b := Fit(TrainingSet(), opts)
	assert.Equal(t, a, b)
}

func TestFitLearnsSeparableLabels(t *testing.T) {
	samples := []Sample{
		{Features{0, 0, 1}, site.ActionAct},
		{Features{0, 0, 0.9}, site.ActionAct},
		{Features{0, 1, 0}, site.ActionReport},
		{Features{0, 0.9, 0}, site.ActionReport},
	}
	m := Fit(samples, FitOptions{Iterations: 3000, LearningRate: 0.5, C: 100})
	assert.Equal(t, site.ActionAct, argmax(m.Predict(Features{0, 0, 1})))
	assert.Equal(t, site.ActionReport, argmax(m.Predict(Features{0, 1, 0})))
}

func TestTrainingAccuracy(t *testing.T) {
	m := Default()
	correct := 0
	set := TrainingSet()
	for _, s := range set {
		if argmax(m.Predict(s.X)) == s.Label {
			correct++
		}
	}
	// regularized, so not every row is reproduced
	assert.Greater(t, correct, len(set)/2)
}

func TestSampleAction(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	assert.Equal(t, site.ActionEscalate, SampleAction(Probs{0, 0, 1, 0}, rng))

	counts := map[site.ActionKind]int{}
	p := Probs{0.25, 0.25, 0.25, 0.25}
	for i := 0; i < 4000; i++ {
		counts[SampleAction(p, rng)]++
	}
	require.Len(t, counts, 4)
	for _, c := range counts {
		assert.InDelta(t, 1000, c, 150)
	}
}
