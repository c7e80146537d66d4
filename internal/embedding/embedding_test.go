package embedding

import (
	"errors"
	"math"
	"testing"

	"github.com/MeKo-Tech/census-contrib/internal/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(ids ...int64) []Row {
	rows := make([]Row, len(ids))
	for i, id := range ids {
		rows[i] = Row{JoinID: id, Values: []float32{float32(id), 1}}
	}
	return rows
}

func TestBlocks(t *testing.T) {
	blocks, err := timing.Collect(Blocks(timing.FromSlice(rowsOf(0, 1, 2, 3, 4)), 2))
	require.NoError(t, err)

	require.Len(t, blocks, 3)
	assert.Len(t, blocks[0], 2)
	assert.Len(t, blocks[1], 2)
	assert.Len(t, blocks[2], 1)
	assert.Equal(t, int64(4), blocks[2][0].JoinID)
}

func TestBlocksEmpty(t *testing.T) {
	_, err := Blocks(timing.FromSlice[Row](nil), 10).Next()
	assert.ErrorIs(t, err, timing.Done)
}

func TestBlocksDefaultSize(t *testing.T) {
	rows := make([]Row, DefaultBlockSize+1)
	blocks, err := timing.Collect(Blocks(timing.FromSlice(rows), 0))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Len(t, blocks[0], DefaultBlockSize)
}

func TestBlocksPropagatesFailure(t *testing.T) {
	boom := errors.New("read failed")
	calls := 0
	src := timing.IteratorFunc[Row](func() (Row, error) {
		calls++
		if calls == 2 {
			return Row{}, boom
		}
		return Row{JoinID: int64(calls)}, nil
	})

	_, err := Blocks(src, 5).Next()
	assert.Same(t, boom, err)
}

func TestValidator(t *testing.T) {
	v := NewValidator(2)

	require.NoError(t, v.Check(rowsOf(5, 3)))
	require.NoError(t, v.Check(rowsOf(9)))
	assert.Equal(t, 3, v.Rows())
	lo, hi := v.JoinIDRange()
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(9), hi)

	err := v.Check(rowsOf(3))
	assert.ErrorIs(t, err, ErrDuplicateJoinID)

	err = v.Check([]Row{{JoinID: 10, Values: []float32{1}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = v.Check([]Row{{JoinID: 11, Values: []float32{1, float32(math.NaN())}}})
	assert.ErrorIs(t, err, ErrNonFinite)

	err = v.Check([]Row{{JoinID: -1, Values: []float32{1, 2}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestValidatorEmptyRange(t *testing.T) {
	lo, hi := NewValidator(1).JoinIDRange()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestRandomSourceIsReproducible(t *testing.T) {
	a, err := timing.Collect[Row](NewRandomSource(20, 3, 42))
	require.NoError(t, err)
	b, err := timing.Collect[Row](NewRandomSource(20, 3, 42))
	require.NoError(t, err)
	c, err := timing.Collect[Row](NewRandomSource(20, 3, 7))
	require.NoError(t, err)

	require.Len(t, a, 20)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for i, row := range a {
		assert.Equal(t, int64(i), row.JoinID)
		require.Len(t, row.Values, 3)
		for _, v := range row.Values {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestRandomSourceDefaultRows(t *testing.T) {
	rows, err := timing.Collect[Row](NewRandomSource(0, 2, 1))
	require.NoError(t, err)
	assert.Len(t, rows, DefaultTestRows)
}
