package lane

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/view"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAssignStampsLaneAndExpiration(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())

	u := a.Assign(1, view.RootPath, view.Root(), PriorityNormal, t0)

	assert.Equal(t, Normal, u.Lane)
	assert.Equal(t, t0.Add(5*time.Second), u.ExpiresAt)
	assert.Equal(t, Normal, a.PendingLanes())
	assert.Equal(t, 1, a.Len())
}

func TestImmediateExpiresOnSubmission(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityImmediate, t0)

	assert.Equal(t, Immediate, a.Next(t0))
	assert.Equal(t, Immediate, a.ExpiredLanes())
}

func TestNegativeTimeoutNeverExpires(t *testing.T) {
	timeouts := DefaultTimeouts()
	timeouts[PriorityIdle] = -1
	a := NewAssignor(timeouts)
	u := a.Assign(1, view.RootPath, nil, PriorityIdle, t0)

	assert.True(t, u.ExpiresAt.IsZero())
	assert.Equal(t, NoLanes, a.MarkExpired(t0.Add(24*time.Hour)))
	_, ok := a.ExpirationOf(Idle)
	assert.False(t, ok)
}

func TestNextSelectsMostUrgentPending(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityIdle, t0)
	a.Assign(2, view.RootPath, nil, PriorityDeferred, t0)
	a.Assign(3, view.RootPath, nil, PriorityUserInteractive, t0)

	assert.Equal(t, UserInteractive, a.Next(t0))
}

func TestNextIncludesExpiredLanes(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityNormal, t0)

	// a stream of interactive work keeps arriving
	later := t0.Add(6 * time.Second)
	a.Assign(2, view.RootPath, nil, PriorityUserInteractive, later)

	assert.Equal(t, UserInteractive|Normal, a.Next(later))
	assert.Equal(t, Normal, a.ExpiredLanes())

	at, ok := a.ExpirationOf(Normal)
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), at)
}

func TestIncludedAndFinishRespectSeq(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityNormal, t0)
	a.Assign(2, view.RootPath, nil, PriorityIdle, t0)
	a.Assign(3, view.RootPath, nil, PriorityNormal, t0)

	inc := a.Included(Normal, 2)
	require.Len(t, inc, 1)
	assert.Equal(t, int64(1), inc[0].Seq)

	done := a.Finish(Normal, 2)
	require.Len(t, done, 1)
	assert.Equal(t, int64(1), done[0].Seq)

	rest := a.Pending()
	require.Len(t, rest, 2)
	assert.Equal(t, int64(2), rest[0].Seq)
	assert.Equal(t, int64(3), rest[1].Seq)
	assert.Equal(t, Normal|Idle, a.PendingLanes())
}

func TestFinishClearsExpiredBits(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityNormal, t0)
	a.MarkExpired(t0.Add(time.Minute))
	require.Equal(t, Normal, a.ExpiredLanes())

	a.Finish(Normal, 1)
	assert.Equal(t, NoLanes, a.ExpiredLanes())
	assert.Equal(t, NoLanes, a.Next(t0.Add(time.Minute)))
}

func TestDropKeepsLaterSubmissions(t *testing.T) {
	a := NewAssignor(DefaultTimeouts())
	a.Assign(1, view.RootPath, nil, PriorityNormal, t0)
	a.Assign(2, view.RootPath, nil, PriorityNormal, t0)

	dropped := a.Drop(Normal, 1)
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(1), dropped[0].Seq)
	assert.Equal(t, 1, a.Len())
}
