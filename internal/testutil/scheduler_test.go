package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_RunsInOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []int
	s.Schedule(func() { order = append(order, 1) }, false)
	s.Schedule(func() { order = append(order, 2) }, true)

	assert.True(t, s.Deferred())
	assert.Equal(t, 2, s.Len())
	assert.Empty(t, order)

	assert.True(t, s.RunNext())
	assert.True(t, s.Idle())
	assert.True(t, s.RunNext())
	assert.False(t, s.RunNext())
	assert.Equal(t, []int{1, 2}, order)
}

func TestManualScheduler_RunPendingFollowsRescheduling(t *testing.T) {
	s := NewManualScheduler()
	count := 0
	var task func()
	task = func() {
		count++
		if count < 3 {
			s.Schedule(task, false)
		}
	}
	s.Schedule(task, false)

	assert.Equal(t, 3, s.RunPending(10))
	assert.Equal(t, 3, count)
}

func TestManualScheduler_RunPendingLimit(t *testing.T) {
	s := NewManualScheduler()
	var task func()
	task = func() { s.Schedule(task, false) }
	s.Schedule(task, false)

	assert.Equal(t, 5, s.RunPending(5))
	assert.Equal(t, 1, s.Len())
}
