package agents

import (
	"math/rand"

	"github.com/talgya/site-awareness/internal/site"
)

// Spawner creates agents with sampled traits. It draws from the run RNG so
// the population is reproducible from the run seed.
type Spawner struct {
	rng      *rand.Rand
	profiles [site.NumRoles]Profile
	nextID   int
}

// NewSpawner creates a spawner using the given per-role profiles.
func NewSpawner(rng *rand.Rand, profiles [site.NumRoles]Profile) *Spawner {
	return &Spawner{rng: rng, profiles: profiles}
}

// Spawn creates count agents of the given role.
func (s *Spawner) Spawn(role site.Role, count int) []*Agent {
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.spawnOne(role))
	}
	return out
}

func (s *Spawner) spawnOne(role site.Role) *Agent {
	id := s.nextID
	s.nextID++

	p := s.profiles[role]
	return &Agent{
		ID:                id,
		Role:              role,
		Workload:          s.rng.Float64() * 5,
		Fatigue:           s.rng.Float64(),
		Experience:        s.rng.Float64(),
		RiskTolerance:     s.rng.Float64(),
		DetectionAccuracy: p.DetectionAccuracy,
		ReportingProb:     p.ReportingProb,
		inboxStep:         -1,
	}
}
