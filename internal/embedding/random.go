package embedding

import (
	"math/rand/v2"

	"github.com/MeKo-Tech/census-contrib/internal/timing"
)

// DefaultTestRows is used by NewRandomSource when nObs is zero.
const DefaultTestRows = 1000

// RandomSource generates a reproducible test embedding with joinids
// 0..nObs-1 and coordinates drawn uniformly from [0, 1).
type RandomSource struct {
	rng       *rand.Rand
	nObs      int
	nFeatures int
	next      int
}

// NewRandomSource creates a generator. The same seed always yields the same
// embedding.
func NewRandomSource(nObs, nFeatures int, seed uint64) *RandomSource {
	if nObs == 0 {
		nObs = DefaultTestRows
	}
	return &RandomSource{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // G404: test data only
		nObs:      nObs,
		nFeatures: nFeatures,
	}
}

// Next returns the next generated row.
func (s *RandomSource) Next() (Row, error) {
	if s.next >= s.nObs {
		return Row{}, timing.Done
	}
	values := make([]float32, s.nFeatures)
	for i := range values {
		values[i] = s.rng.Float32()
	}
	row := Row{JoinID: int64(s.next), Values: values}
	s.next++
	return row, nil
}

// Close is a no-op.
func (s *RandomSource) Close() error {
	return nil
}
