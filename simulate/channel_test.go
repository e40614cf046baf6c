package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdtrace/swdcore/core"
)

func TestChannel_CurrentBitStateTracksArbitraryPosition(t *testing.T) {
	c := NewChannel(core.Low, []Edge{{Sample: 10, Level: core.High}, {Sample: 20, Level: core.Low}}, 5)
	assert.Equal(t, core.Low, c.CurrentBitState())

	require.True(t, c.AdvanceToAbsPosition(15))
	assert.Equal(t, core.High, c.CurrentBitState())

	require.True(t, c.AdvanceToAbsPosition(20))
	assert.Equal(t, core.Low, c.CurrentBitState())
}

func TestChannel_AdvanceToAbsPositionRejectsBackwardsOrPastLimit(t *testing.T) {
	c := NewChannel(core.Low, []Edge{{Sample: 10, Level: core.High}}, 5)
	require.True(t, c.AdvanceToAbsPosition(10))
	assert.False(t, c.AdvanceToAbsPosition(5))
	assert.False(t, c.AdvanceToAbsPosition(15))
	assert.True(t, c.AdvanceToAbsPosition(14))
}

func TestChannel_AdvanceToNextEdgeStopsAtEndOfStream(t *testing.T) {
	c := NewChannel(core.Low, []Edge{{Sample: 10, Level: core.High}}, 5)
	require.True(t, c.AdvanceToNextEdge())
	assert.Equal(t, int64(10), c.SampleNumber())
	assert.False(t, c.AdvanceToNextEdge())
}
