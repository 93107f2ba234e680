package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInlineSchedulerRunsNow(t *testing.T) {
	var ran bool
	InlineScheduler{}.Schedule(func() { ran = true }, true)
	assert.True(t, ran)
	assert.False(t, InlineScheduler{}.Deferred())
}

func TestLoopSchedulerIdleRunsLast(t *testing.T) {
	s := NewLoopScheduler()
	var order []string
	s.Schedule(func() { order = append(order, "idle") }, true)
	s.Schedule(func() { order = append(order, "a") }, false)
	s.Schedule(func() {
		order = append(order, "b")
		s.Schedule(func() { order = append(order, "c") }, false)
	}, false)

	assert.Equal(t, 4, s.RunPending())
	assert.Equal(t, []string{"a", "b", "c", "idle"}, order)
	assert.True(t, s.Deferred())
}

func TestLoopSchedulerRunStopsOnCancel(t *testing.T) {
	s := NewLoopScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ran := make(chan struct{})
	s.Schedule(func() { close(ran) }, false)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
