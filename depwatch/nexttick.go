package depwatch

// NextTick defers fn until after the current synchronous turn, behind any
// pending flush that was queued before it.
func (rs *ReactiveSystem) NextTick(fn func()) {
	rs.callbacks = append(rs.callbacks, func() {
		if err := callHook(fn); err != nil {
			rs.handleError(nil, err, "nextTick")
		}
	})
	if rs.pending {
		return
	}
	rs.pending = true

	if rs.cfg.Microtask != nil {
		rs.cfg.Microtask(rs.flushCallbacks)
		return
	}
	rs.micro.Push(rs.flushCallbacks)
}

func (rs *ReactiveSystem) flushCallbacks() {
	rs.pending = false
	copies := rs.callbacks
	rs.callbacks = nil
	for _, cb := range copies {
		cb()
	}
}

// Drain runs the system's own microtask queue until it is empty. Systems
// configured with WithMicrotask are drained by their event loop instead and
// Drain returns 0.
func (rs *ReactiveSystem) Drain() int {
	return rs.micro.Drain()
}
