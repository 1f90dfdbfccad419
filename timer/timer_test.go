package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerManager_FiresOnce(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	id := m.AfterFunc(10*time.Millisecond, func() { calls.Add(1) })
	assert.NotZero(t, id)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, m.Pending())
	assert.False(t, m.Cancel(id), "fired callbacks cannot be cancelled")
}

func TestTimerManager_Cancel(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	id := m.AfterFunc(40*time.Millisecond, func() { calls.Add(1) })
	other := m.AfterFunc(time.Hour, func() {})
	assert.Equal(t, 2, m.Pending())

	assert.True(t, m.Cancel(id))
	assert.False(t, m.Cancel(id), "second cancel is a no-op")
	assert.False(t, m.Cancel(0))
	assert.Equal(t, 1, m.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, m.Cancel(other))
}

func TestTimerManager_Ordering(t *testing.T) {
	m := NewTimerManager(2 * time.Millisecond)
	defer m.Stop()

	order := make(chan int, 2)
	m.AfterFunc(40*time.Millisecond, func() { order <- 2 })
	m.AfterFunc(5*time.Millisecond, func() { order <- 1 })

	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestTimerManager_CancelFromMiddle(t *testing.T) {
	m := NewTimerManager(2 * time.Millisecond)
	defer m.Stop()

	fired := make(chan int, 3)
	ids := make([]int64, 3)
	for i := range ids {
		n := i
		ids[i] = m.AfterFunc(time.Duration(10*(i+1))*time.Millisecond, func() { fired <- n })
	}
	require.True(t, m.Cancel(ids[1]))

	assert.Equal(t, 0, <-fired)
	assert.Equal(t, 2, <-fired)
	assert.Equal(t, 0, m.Pending())
}

func TestTimerManager_StopDropsPending(t *testing.T) {
	m := NewTimerManager(2 * time.Millisecond)

	var calls atomic.Int32
	m.AfterFunc(20*time.Millisecond, func() { calls.Add(1) })
	m.Stop()
	m.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
