package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_Summary(t *testing.T) {
	out := &Output{
		Errors:     []LoanError{{Loan: 1, Point: 2}, {Loan: 3, Point: 2}},
		MoveErrors: []MoveError{{Path: 1, Point: 4}},
	}

	s := out.Summary()
	assert.Equal(t, Summary{LoanErrors: 2, SubsetErrors: 0, MoveErrors: 1}, s)
	assert.Equal(t, "2 loan error(s), 0 subset error(s), 1 move error(s)", s.String())
	assert.True(t, out.HasErrors())
	assert.ElementsMatch(t, []uint64{1, 3}, []uint64{out.ErrorsAt(2)[0].Index(), out.ErrorsAt(2)[1].Index()})
	assert.Empty(t, out.ErrorsAt(9))
}

func TestOutput_Hash(t *testing.T) {
	a := &Output{Errors: []LoanError{{Loan: 1, Point: 2}}}
	b := &Output{Errors: []LoanError{{Loan: 1, Point: 2}}}
	c := &Output{Errors: []LoanError{{Loan: 2, Point: 2}}}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	hc, err := c.Hash()
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}
