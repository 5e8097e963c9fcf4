package memhost

import (
	"context"
	"sync"
	"time"

	"mhurbridge/pkg/host"
)

type timer struct {
	fn  host.TimerFunc
	due time.Time
}

// Scheduler runs registered timers one at a time on the goroutine that
// calls Run, which plays the role of the host's main loop.
type Scheduler struct {
	mu     sync.Mutex
	timers []*timer
	wake   chan struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{wake: make(chan struct{}, 1)}
}

func (s *Scheduler) RegisterTimer(fn host.TimerFunc) {
	s.mu.Lock()
	s.timers = append(s.timers, &timer{fn: fn, due: time.Now()})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Step calls every registered timer once, ignoring due times.
func (s *Scheduler) Step() {
	for _, t := range s.snapshot() {
		t.due = time.Now().Add(t.fn())
	}
}

// Run calls timers as they come due until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := time.Now().Add(time.Hour)
		for _, t := range s.snapshot() {
			if !time.Now().Before(t.due) {
				t.due = time.Now().Add(t.fn())
			}
			if t.due.Before(next) {
				next = t.due
			}
		}

		wait := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil
		case <-s.wake:
			wait.Stop()
		case <-wait.C:
		}
	}
}

func (s *Scheduler) snapshot() []*timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*timer(nil), s.timers...)
}
