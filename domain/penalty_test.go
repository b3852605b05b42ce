package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRunePenaltyNotPenalized(t *testing.T) {
	tests := []struct {
		name         string
		priorBids    int64
		priorRune    uint8
		newRune      uint8
		runesEnabled bool
	}{
		{"first selection", 100, NoRune, 2, true},
		{"same rune", 100, 2, 2, true},
		{"runes disabled", 100, 1, 2, false},
		{"zero prior weight", 0, 1, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw, err := ApplyRunePenalty(tt.priorBids, tt.priorRune, tt.newRune, tt.runesEnabled, 1000)
			require.NoError(t, err)
			require.False(t, sw.Penalized)
			require.Equal(t, tt.priorBids, sw.WeightAfter)
			require.Zero(t, sw.PriorRuneDelta)
			require.Zero(t, sw.NewRuneDelta)
			require.Zero(t, sw.TotalDelta)
		})
	}
}

func TestApplyRunePenaltyTenPercent(t *testing.T) {
	sw, err := ApplyRunePenalty(100, 1, 2, true, 1000)
	require.NoError(t, err)

	require.True(t, sw.Penalized)
	require.Equal(t, int64(90), sw.WeightAfter)
	require.Equal(t, int64(-100), sw.PriorRuneDelta)
	require.Equal(t, int64(90), sw.NewRuneDelta)
	require.Equal(t, int64(-10), sw.TotalDelta)
}

func TestApplyRunePenaltyTruncatesTowardZero(t *testing.T) {
	// 99 * 9000 / 10000 = 89.1, the fraction burns
	sw, err := ApplyRunePenalty(99, 1, 2, true, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(89), sw.WeightAfter)
	require.Equal(t, int64(-10), sw.TotalDelta)
}

func TestApplyRunePenaltyFullRate(t *testing.T) {
	sw, err := ApplyRunePenalty(100, 1, 2, true, 10000)
	require.NoError(t, err)
	require.True(t, sw.Penalized)
	require.Zero(t, sw.WeightAfter)
	require.Equal(t, int64(-100), sw.TotalDelta)
}

func TestApplyRunePenaltyNegativeWeight(t *testing.T) {
	_, err := ApplyRunePenalty(-1, 1, 2, true, 1000)
	require.Error(t, err)
}
