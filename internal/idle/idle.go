// Package idle runs low-priority background tasks, one step at a time, on a
// dedicated goroutine. It is the Go counterpart of a main-loop idle source:
// tasks re-arm themselves by returning true and drop out by returning false.
package idle

import (
	"sort"
	"sync"
	"time"
)

// SourceID identifies a scheduled task. The zero value is never issued.
type SourceID uint64

// Task performs one step of work and reports whether it wants to run again.
type Task func() bool

// Loop schedules idle tasks. Every interval each pending task runs once, in
// the order it was added.
type Loop struct {
	mu       sync.Mutex
	interval time.Duration
	tasks    map[SourceID]Task
	nextID   SourceID
	wake     chan struct{}
	done     chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New starts a Loop that steps pending tasks every interval.
func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Millisecond
	}
	l := &Loop{
		interval: interval,
		tasks:    make(map[SourceID]Task),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Add schedules t and returns its ID. It returns 0 once the loop is closed.
func (l *Loop) Add(t Task) SourceID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}
	l.nextID++
	id := l.nextID
	l.tasks[id] = t
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return id
}

// Remove cancels a scheduled task. It reports whether the task was pending.
// A step already running completes, but the task is not run again.
func (l *Loop) Remove(id SourceID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tasks[id]; !ok {
		return false
	}
	delete(l.tasks, id)
	return true
}

// Pending returns the number of scheduled tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Close cancels every task and waits for the loop goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.tasks = make(map[SourceID]Task)
	close(l.done)
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		if l.Pending() == 0 {
			select {
			case <-l.wake:
			case <-l.done:
				return
			}
		}
		timer.Reset(l.interval)
		select {
		case <-timer.C:
		case <-l.done:
			return
		}
		l.step()
	}
}

// step runs each task scheduled at the start of the step once.
func (l *Loop) step() {
	l.mu.Lock()
	ids := make([]SourceID, 0, len(l.tasks))
	for id := range l.tasks {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		l.mu.Lock()
		t, ok := l.tasks[id]
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return
		}
		if !ok {
			continue
		}
		if !t() {
			l.Remove(id)
		}
	}
}
