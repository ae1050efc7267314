package world

import (
	"fmt"
	"math/rand"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Placement selects how agents are spread over the grid.
type Placement uint8

const (
	PlacementUniform   Placement = iota // every cell equally likely
	PlacementClustered                  // crews bunch around noise peaks
)

var placementNames = [2]string{"uniform", "clustered"}

func (p Placement) String() string {
	if int(p) < len(placementNames) {
		return placementNames[p]
	}
	return fmt.Sprintf("placement(%d)", p)
}

// ParsePlacement parses a placement mode name.
func ParsePlacement(s string) (Placement, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range placementNames {
		if n == name {
			return Placement(i), nil
		}
	}
	return 0, fmt.Errorf("invalid placement %q", s)
}

// maxClusterTries bounds rejection sampling; the last candidate is kept.
const maxClusterTries = 32

// Placer draws agent positions. All randomness comes from the run RNG
// so placement is reproducible from the run seed.
type Placer struct {
	grid  *Grid
	mode  Placement
	rng   *rand.Rand
	noise opensimplex.Noise
}

// NewPlacer creates a placer. The noise field is seeded with noiseSeed and
// only used in clustered mode.
func NewPlacer(g *Grid, mode Placement, noiseSeed int64, rng *rand.Rand) *Placer {
	p := &Placer{grid: g, mode: mode, rng: rng}
	if mode == PlacementClustered {
		p.noise = opensimplex.NewNormalized(noiseSeed)
	}
	return p
}

// Next returns the next position.
func (p *Placer) Next() Coord {
	c := p.uniform()
	if p.mode != PlacementClustered {
		return c
	}
	for i := 0; i < maxClusterTries; i++ {
		if p.rng.Float64() < p.Density(c) {
			return c
		}
		c = p.uniform()
	}
	return c
}

// Density returns the clustered acceptance weight of a cell in [0, 1].
func (p *Placer) Density(c Coord) float64 {
	if p.noise == nil {
		return 1
	}
	v := octaveNoise(p.noise, float64(c.X), float64(c.Y), 3, 0.15, 0.5)
	// sharpen so the peaks dominate
	return v * v * v
}

// PlaceAll assigns each ID a position and places it on the grid.
func (p *Placer) PlaceAll(ids []int) error {
	for _, id := range ids {
		if err := p.grid.Place(id, p.Next()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Placer) uniform() Coord {
	return Coord{X: p.rng.Intn(p.grid.Width), Y: p.rng.Intn(p.grid.Height)}
}

// octaveNoise sums octaves of normalized noise, returning a value in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
