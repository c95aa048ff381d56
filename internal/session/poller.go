package session

import (
	"math/rand"
	"sync"
	"time"
)

// Poller runs fn on a jittered interval as a backstop for missed push
// events. Stop is an explicit cancellation handle tied to the session's
// lifetime; it is safe to call more than once.
type Poller struct {
	interval time.Duration
	fn       func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller starts a poller that fires fn roughly every interval, with
// up to 20% random jitter so many clients do not tick in lockstep.
func NewPoller(interval time.Duration, fn func()) *Poller {
	p := &Poller{
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Poller) run() {
	defer close(p.done)
	timer := time.NewTimer(p.next())
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			p.fn()
			timer.Reset(p.next())
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) next() time.Duration {
	span := int64(p.interval) / 5
	if span <= 0 {
		return p.interval
	}
	return p.interval + time.Duration(rand.Int63n(span))
}

// Stop cancels the poller and waits for the in-flight tick, if any.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}
