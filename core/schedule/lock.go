package schedule

import (
	"context"
	"sync"

	"github.com/harborops/berthd/core/model"
)

// HorizonLock serializes optimizer runs over overlapping time horizons. Two
// runs over disjoint horizons may proceed concurrently; overlapping ones wait
// so neither perceives stale berth availability.
type HorizonLock struct {
	mu     sync.Mutex
	cond   *sync.Cond
	locked []model.Window
}

// NewHorizonLock creates an unlocked HorizonLock.
func NewHorizonLock() *HorizonLock {
	l := &HorizonLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *HorizonLock) overlapsLocked(w model.Window) bool {
	for _, h := range l.locked {
		if h.Overlaps(w) {
			return true
		}
	}
	return false
}

// Acquire blocks until no held horizon overlaps w, then holds w. The returned
// release function must be called exactly once. Acquire fails when ctx is
// done before the horizon becomes free.
func (l *HorizonLock) Acquire(ctx context.Context, w model.Window) (func(), error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// holding the mutex pins every waiter inside cond.Wait, so the
			// wakeup cannot slip between its ctx check and the wait
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		case <-done:
		}
	}()

	l.mu.Lock()
	for l.overlapsLocked(w) {
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.locked = append(l.locked, w)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			for i, h := range l.locked {
				if h == w {
					l.locked = append(l.locked[:i], l.locked[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
			l.cond.Broadcast()
		})
	}, nil
}
