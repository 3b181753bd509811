package exam

import (
	"sync"
	"time"
)

type tickerHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// StartTicker is the production TimerFactory: one goroutine driving tick
// until the handle is stopped.
func StartTicker(interval time.Duration, tick func()) TimerHandle {
	h := &tickerHandle{stop: make(chan struct{})}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-t.C:
				tick()
			}
		}
	}()
	return h
}
