package gappa

import (
	"math/big"
	"testing"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = "Results:\n  nquot - NQuot in [-1023b-4 {-63.9375, -2^(5.99887)}, 0]\n"

func TestParseLowerBound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		report string
		want   *big.Rat
	}{
		{"typical", sampleReport, big.NewRat(-639375, 10000)},
		{"integer", "Results:\n  x in [-2 {-2, -2^(1)}, 0]\n", big.NewRat(-2, 1)},
		{"no trailing newline", "Results:\n  x in [-1b-1 {-0.5, -2^(-1)}, 0]", big.NewRat(-1, 2)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLowerBound(tt.report)
			require.NoError(t, err)
			assert.Zero(t, tt.want.Cmp(got), "got %s", got.RatString())
		})
	}
}

func TestParseLowerBoundErrors(t *testing.T) {
	t.Parallel()
	for _, report := range []string{
		"",
		"Results:",
		"Results:\n  nothing useful here\n",
		"Results:\n  x in [a {abc, 1}, 0]\n",
	} {
		_, err := ParseLowerBound(report)
		assert.ErrorIs(t, err, types.ErrParse, "report %q", report)
	}
}

func TestUpperBoundIsZero(t *testing.T) {
	t.Parallel()
	assert.True(t, UpperBoundIsZero(sampleReport))
	assert.False(t, UpperBoundIsZero("Results:\n  x in [-1 {-1, -2^(0)}, 1b-3 {0.125, 2^(-3)}]\n"))
	assert.False(t, UpperBoundIsZero("Results:\n"))
}
