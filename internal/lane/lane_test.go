package lane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighestPicksMostUrgent(t *testing.T) {
	assert.Equal(t, Immediate, Highest(Immediate|Idle))
	assert.Equal(t, Normal, Highest(Normal|Deferred|Idle))
	assert.Equal(t, NoLanes, Highest(NoLanes))
}

func TestMoreUrgent(t *testing.T) {
	assert.True(t, UserInteractive.MoreUrgent(Normal))
	assert.False(t, Normal.MoreUrgent(UserInteractive))
	assert.False(t, Normal.MoreUrgent(Normal|Idle))
	assert.True(t, Idle.MoreUrgent(NoLanes))
	assert.False(t, NoLanes.MoreUrgent(Idle))
}

func TestLanesMerge(t *testing.T) {
	l := Normal | Idle
	assert.True(t, l.Includes(Normal))
	assert.False(t, l.Includes(Normal|Deferred))
	assert.True(t, l.Intersects(Idle|Immediate))
	assert.Equal(t, "normal|idle", l.String())
	assert.Equal(t, "none", NoLanes.String())
}

func TestPriorityLaneMapping(t *testing.T) {
	for p := PriorityImmediate; p <= PriorityIdle; p++ {
		l := p.Lane()
		assert.Equal(t, p, PriorityOf(l), p.String())
		assert.Equal(t, int(p), l.Index())
	}
	assert.Equal(t, Normal, Priority(42).Lane())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("User_Interactive")
	require.NoError(t, err)
	assert.Equal(t, PriorityUserInteractive, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}
