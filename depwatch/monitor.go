package depwatch

import "time"

// Monitor observes scheduler activity. Every method is called synchronously
// on the goroutine that owns the system.
type Monitor interface {
	FlushStarted(queued int)
	WatcherStarted(w *Watcher)
	WatcherFinished(w *Watcher, elapsed time.Duration, err error)
	FlushFinished(ran int, elapsed time.Duration, err error)
	RunawayAborted(w *Watcher, err error)
}

// NopMonitor can be embedded to implement only part of Monitor.
type NopMonitor struct{}

func (NopMonitor) FlushStarted(int) {}
func (NopMonitor) WatcherStarted(*Watcher) {}
func (NopMonitor) WatcherFinished(*Watcher, time.Duration, error) {}
func (NopMonitor) FlushFinished(int, time.Duration, error) {}
func (NopMonitor) RunawayAborted(*Watcher, error) {}

type multiMonitor []Monitor

// MultiMonitor fans every event out to ms in order. Nil entries are skipped.
func MultiMonitor(ms ...Monitor) Monitor {
	out := make(multiMonitor, 0, len(ms))
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (mm multiMonitor) FlushStarted(queued int) {
	for _, m := range mm {
		m.FlushStarted(queued)
	}
}

func (mm multiMonitor) WatcherStarted(w *Watcher) {
	for _, m := range mm {
		m.WatcherStarted(w)
	}
}

func (mm multiMonitor) WatcherFinished(w *Watcher, elapsed time.Duration, err error) {
	for _, m := range mm {
		m.WatcherFinished(w, elapsed, err)
	}
}

func (mm multiMonitor) FlushFinished(ran int, elapsed time.Duration, err error) {
	for _, m := range mm {
		m.FlushFinished(ran, elapsed, err)
	}
}

func (mm multiMonitor) RunawayAborted(w *Watcher, err error) {
	for _, m := range mm {
		m.RunawayAborted(w, err)
	}
}
