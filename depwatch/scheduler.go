package depwatch

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

// queueWatcher adds w to the pending flush unless it is already pending.
// During a flush w is inserted by id after the watcher currently running,
// so it still runs in this pass.
func (rs *ReactiveSystem) queueWatcher(w *Watcher) {
	id := w.id
	if rs.has.Contains(id) {
		return
	}
	rs.has.Add(id)

	if !rs.flushing {
		rs.queue = append(rs.queue, w)
	} else {
		i := len(rs.queue) - 1
		for i > rs.index && rs.queue[i].id > id {
			i--
		}
		rs.queue = slices.Insert(rs.queue, i+1, w)
	}

	if rs.waiting {
		return
	}
	rs.waiting = true

	if !rs.cfg.Async {
		if err := rs.flushSchedulerQueue(); err != nil {
			rs.handleError(nil, err, "flush")
		}
		return
	}

	gen := rs.flushGen
	rs.NextTick(func() {
		// FlushSync may already have taken care of this flush
		if gen != rs.flushGen {
			return
		}
		if err := rs.flushSchedulerQueue(); err != nil {
			rs.handleError(nil, err, "flush")
		}
	})
}

// FlushSync runs the pending flush now instead of waiting for the
// microtask. It is a no-op when nothing is pending or a flush is already
// running. Errors returned by internal watchers are joined.
func (rs *ReactiveSystem) FlushSync() error {
	if !rs.waiting || rs.flushing {
		return nil
	}
	return rs.flushSchedulerQueue()
}

// Pending reports the number of watchers waiting for the next flush.
func (rs *ReactiveSystem) Pending() int {
	return len(rs.queue)
}

// OnFlushed registers fn to be called with the watchers that ran after each
// flush completes. The returned func removes it.
func (rs *ReactiveSystem) OnFlushed(fn func(ran []*Watcher)) (remove func()) {
	rs.flushedID++
	id := rs.flushedID
	rs.onFlushed[id] = fn
	return func() {
		delete(rs.onFlushed, id)
	}
}

func (rs *ReactiveSystem) flushSchedulerQueue() error {
	rs.flushing = true
	start := time.Now()
	monitor := rs.cfg.Monitor
	if monitor != nil {
		monitor.FlushStarted(len(rs.queue))
	}

	// Parents are created before children so they run first, and a before
	// hook always fires ahead of its own watcher.
	sort.SliceStable(rs.queue, func(i, j int) bool {
		return rs.queue[i].id < rs.queue[j].id
	})

	var errs []error
	ran := 0
	// the queue may grow while watchers run, so don't cache its length
	for rs.index = 0; rs.index < len(rs.queue); rs.index++ {
		w := rs.queue[rs.index]
		id := w.id
		if rs.aborted.Contains(id) {
			continue
		}

		if w.before != nil {
			if err := callHook(w.before); err != nil {
				rs.handleError(w, err, "before hook")
			}
		}
		rs.has.Remove(id)

		var wStart time.Time
		if monitor != nil {
			monitor.WatcherStarted(w)
			wStart = time.Now()
		}
		err := w.Run()
		ran++
		if monitor != nil {
			monitor.WatcherFinished(w, time.Since(wStart), err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("watcher %d: %w", id, err))
		}

		if rs.has.Contains(id) {
			rs.circular[id]++
			if rs.circular[id] > rs.cfg.MaxUpdateCount {
				rs.abortRunaway(w)
			}
		}
	}

	flushed := slices.Clone(rs.queue)
	rs.resetSchedulerState()
	err := errors.Join(errs...)

	if monitor != nil {
		monitor.FlushFinished(ran, time.Since(start), err)
	}
	rs.callFlushedHooks(flushed)
	return err
}

// abortRunaway stops w for the rest of the pass. It does not come back in a
// later flush unless one of its dependencies changes again.
func (rs *ReactiveSystem) abortRunaway(w *Watcher) {
	rs.aborted.Add(w.id)

	var msg string
	if w.user {
		msg = fmt.Sprintf("You may have an infinite update loop in watcher with expression \"%s\"", w.expression)
	} else {
		msg = "You may have an infinite update loop in a render function."
	}
	rs.warn(w, "%s", msg)

	if rs.cfg.Monitor != nil {
		rs.cfg.Monitor.RunawayAborted(w, fmt.Errorf("%w: %s", ErrRunaway, msg))
	}
}

func (rs *ReactiveSystem) resetSchedulerState() {
	clear(rs.queue)
	rs.queue = rs.queue[:0]
	rs.index = 0
	rs.has.Clear()
	rs.aborted.Clear()
	clear(rs.circular)
	rs.waiting = false
	rs.flushing = false
	rs.flushGen++
}

func (rs *ReactiveSystem) callFlushedHooks(flushed []*Watcher) {
	if len(rs.onFlushed) == 0 {
		return
	}

	ids := make([]int, 0, len(rs.onFlushed))
	for id := range rs.onFlushed {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		fn, ok := rs.onFlushed[id]
		if !ok {
			continue
		}
		if err := callHook(func() { fn(flushed) }); err != nil {
			rs.handleError(nil, err, "flushed hook")
		}
	}
}
