// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// deadline is one pending callback. index is its slot in the heap.
type deadline struct {
	id    int64
	at    time.Time
	fire  func()
	index int
}

// deadlines is a min-heap ordered by fire time.
type deadlines []*deadline

func (q deadlines) Len() int           { return len(q) }
func (q deadlines) Less(i, j int) bool { return q[i].at.Before(q[j].at) }

func (q deadlines) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *deadlines) Push(x any) {
	d := x.(*deadline)
	d.index = len(*q)
	*q = append(*q, d)
}

func (q *deadlines) Pop() any {
	old := *q
	d := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return d
}

// TimerManager runs one-shot callbacks after a delay. Expiry is checked every
// resolution tick, so a callback fires up to one tick late. Callbacks run on
// their own goroutine.
type TimerManager struct {
	mutex      sync.Mutex
	queue      deadlines
	pending    map[int64]*deadline
	nextID     int64
	resolution time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

func NewTimerManager(resolution time.Duration) *TimerManager {
	if resolution <= 0 {
		resolution = 100 * time.Millisecond
	}
	m := &TimerManager{
		pending:    make(map[int64]*deadline),
		nextID:     1,
		resolution: resolution,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go m.process()
	return m
}

// AfterFunc schedules fire after delay and returns an id for Cancel. Ids are
// never zero.
func (m *TimerManager) AfterFunc(delay time.Duration, fire func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	d := &deadline{id: m.nextID, at: time.Now().Add(delay), fire: fire}
	m.nextID++
	m.pending[d.id] = d
	heap.Push(&m.queue, d)
	return d.id
}

// Cancel drops a pending callback. It reports false when the callback
// already fired or the id is unknown.
func (m *TimerManager) Cancel(id int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	d, ok := m.pending[id]
	if !ok {
		return false
	}
	delete(m.pending, id)
	heap.Remove(&m.queue, d.index)
	return true
}

// Pending returns the number of scheduled callbacks.
func (m *TimerManager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.pending)
}

// Stop halts the processing loop. Pending callbacks never fire.
func (m *TimerManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *TimerManager) process() {
	defer close(m.done)

	ticker := time.NewTicker(m.resolution)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, fire := range m.due(now) {
				go fire()
			}
		case <-m.stop:
			return
		}
	}
}

func (m *TimerManager) due(now time.Time) []func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var fired []func()
	for len(m.queue) > 0 && !m.queue[0].at.After(now) {
		d := heap.Pop(&m.queue).(*deadline)
		delete(m.pending, d.id)
		fired = append(fired, d.fire)
	}
	return fired
}
