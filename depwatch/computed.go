package depwatch

import (
	"fmt"
	"slices"
)

// Computed is a cached, lazily evaluated value. It re-evaluates on the
// first read after one of its dependencies changed, and watchers that read
// it depend on its dependencies directly.
type Computed struct {
	w *Watcher
}

func (rs *ReactiveSystem) Computed(scope *Scope, fn Getter, opts ...WatcherOption) *Computed {
	opts = append(slices.Clone(opts), Lazy())
	w, err := rs.NewWatcher(scope, fn, nil, opts...)
	if err != nil {
		// lazy watchers are not evaluated and fn is always a valid getter
		panic(err)
	}
	return &Computed{w: w}
}

// Get returns the cached value, evaluating first when dirty. After Teardown
// it keeps returning the last value.
func (c *Computed) Get() (any, error) {
	w := c.w
	if !w.active {
		return w.value, nil
	}
	if w.dirty {
		if err := w.Evaluate(); err != nil {
			return nil, err
		}
	}
	if w.rs.activeSub != nil {
		w.Depend()
	}
	return w.value, nil
}

func (c *Computed) MustGet() any {
	v, err := c.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Computed) Watcher() *Watcher {
	return c.w
}

func (c *Computed) Teardown() {
	c.w.Teardown()
}

// Watch creates a user watcher and returns a func that stops it. With
// Immediate the callback also runs right away with the initial value and
// tracking paused.
func (rs *ReactiveSystem) Watch(scope *Scope, expOrFn any, cb Callback, opts ...WatcherOption) (unwatch func(), err error) {
	cfg := &watcherConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	opts = append(slices.Clone(opts), User())
	w, err := rs.NewWatcher(scope, expOrFn, cb, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.immediate && cb != nil {
		rs.PauseTracking()
		if err := callCallback(cb, w.value, nil); err != nil {
			rs.handleError(w, err, fmt.Sprintf(`callback for immediate watcher "%s"`, w.expression))
		}
		rs.ResumeTracking()
	}
	return w.Teardown, nil
}
