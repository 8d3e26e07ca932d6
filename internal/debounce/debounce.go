// Package debounce runs a function once a key has been quiet for a delay.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay suits keystroke-level editing.
const DefaultDelay = 100 * time.Millisecond

// Debouncer coalesces triggers per key. Each Trigger for a key cancels the
// pending call for that key and restarts its timer.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*entry
	wg      sync.WaitGroup
	stopped bool
	firing  int
	settled *sync.Cond
}

type entry struct {
	timer *time.Timer
	fn    func()
}

func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Debouncer{delay: delay, pending: map[string]*entry{}}
	d.settled = sync.NewCond(&d.mu)
	return d
}

// Trigger schedules fn for key, replacing any call still waiting.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if e, ok := d.pending[key]; ok && e.timer.Stop() {
		d.wg.Done()
	}
	e := &entry{fn: fn}
	d.wg.Add(1)
	e.timer = time.AfterFunc(d.delay, func() { d.fire(key, e) })
	d.pending[key] = e
}

func (d *Debouncer) fire(key string, e *entry) {
	defer d.wg.Done()
	d.mu.Lock()
	if d.pending[key] != e {
		d.settled.Broadcast()
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.firing++
	d.mu.Unlock()

	e.fn()

	d.mu.Lock()
	d.firing--
	d.settled.Broadcast()
	d.mu.Unlock()
}

// Flush runs every waiting call now, in no particular order, and returns once
// calls whose timer already fired have finished too.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var fns []func()
	type fired struct {
		key string
		e   *entry
	}
	var inflight []fired
	for key, e := range d.pending {
		if !e.timer.Stop() {
			// fire is waiting for the lock and runs fn itself
			inflight = append(inflight, fired{key, e})
			continue
		}
		d.wg.Done()
		fns = append(fns, e.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		queued := false
		for _, f := range inflight {
			if d.pending[f.key] == f.e {
				queued = true
				break
			}
		}
		if !queued && d.firing == 0 {
			return
		}
		d.settled.Wait()
	}
}

// Pending reports how many keys are waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels waiting calls and blocks until running ones return. Later
// triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, e := range d.pending {
		if e.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
