// Package embedding reads contributed embeddings row by row and stages them
// as coordinate triplets.
package embedding

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/census-contrib/internal/timing"
)

// DefaultBlockSize is the number of rows grouped into one timed block.
const DefaultBlockSize = 10000

var (
	// ErrDuplicateJoinID is returned when a soma_joinid appears twice.
	ErrDuplicateJoinID = errors.New("duplicate soma_joinid")
	// ErrDimensionMismatch is returned when a row has the wrong number of coordinates.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNonFinite is returned for NaN or infinite coordinates.
	ErrNonFinite = errors.New("non-finite embedding value")
)

// Row is one embedded cell: its soma_joinid and coordinates.
type Row struct {
	JoinID int64
	Values []float32
}

// Source produces embedding rows and owns any files it opened.
type Source interface {
	timing.Iterator[Row]
	Close() error
}

// Blocks groups rows into slices of up to size rows. A short final block is
// returned before Done. Errors from rows abort the block being assembled.
func Blocks(rows timing.Iterator[Row], size int) timing.Iterator[[]Row] {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return timing.IteratorFunc[[]Row](func() ([]Row, error) {
		block := make([]Row, 0, size)
		for len(block) < size {
			row, err := rows.Next()
			if errors.Is(err, timing.Done) {
				break
			}
			if err != nil {
				return nil, err
			}
			block = append(block, row)
		}
		if len(block) == 0 {
			return nil, timing.Done
		}
		return block, nil
	})
}

// Validator checks rows across an entire ingest: consistent dimensionality,
// unique joinids and finite values.
type Validator struct {
	nFeatures int
	seen      map[int64]struct{}
	minJoinID int64
	maxJoinID int64
}

// NewValidator creates a validator expecting nFeatures coordinates per row.
func NewValidator(nFeatures int) *Validator {
	return &Validator{
		nFeatures: nFeatures,
		seen:      make(map[int64]struct{}),
		minJoinID: math.MaxInt64,
		maxJoinID: math.MinInt64,
	}
}

// Check validates a block and records its joinids.
func (v *Validator) Check(rows []Row) error {
	for _, row := range rows {
		if row.JoinID < 0 {
			return fmt.Errorf("soma_joinid %d must not be negative", row.JoinID)
		}
		if len(row.Values) != v.nFeatures {
			return fmt.Errorf("%w: soma_joinid %d has %d values, expected %d",
				ErrDimensionMismatch, row.JoinID, len(row.Values), v.nFeatures)
		}
		for j, val := range row.Values {
			f := float64(val)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: soma_joinid %d feature %d", ErrNonFinite, row.JoinID, j)
			}
		}
		if _, dup := v.seen[row.JoinID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateJoinID, row.JoinID)
		}
		v.seen[row.JoinID] = struct{}{}
		v.minJoinID = min(v.minJoinID, row.JoinID)
		v.maxJoinID = max(v.maxJoinID, row.JoinID)
	}
	return nil
}

// Rows returns the number of distinct rows accepted so far.
func (v *Validator) Rows() int {
	return len(v.seen)
}

// JoinIDRange returns the smallest and largest accepted joinid. Both are zero
// when no rows were accepted.
func (v *Validator) JoinIDRange() (lo, hi int64) {
	if len(v.seen) == 0 {
		return 0, 0
	}
	return v.minJoinID, v.maxJoinID
}
