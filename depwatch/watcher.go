package depwatch

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Getter evaluates a watched expression. Every tracked read it performs
// becomes a dependency of the watcher.
type Getter func() (any, error)

// Callback receives the new and previous value of a watcher.
type Callback func(newValue, oldValue any) error

type watcherConfig struct {
	deep       bool
	user       bool
	lazy       bool
	sync       bool
	immediate  bool
	before     func()
	expression string
}

type WatcherOption func(*watcherConfig)

// Deep traverses the value after each evaluation so nested mutations
// trigger the watcher too.
func Deep() WatcherOption {
	return func(c *watcherConfig) { c.deep = true }
}

// User marks the watcher as user-authored: its errors go to the error sink
// instead of being returned.
func User() WatcherOption {
	return func(c *watcherConfig) { c.user = true }
}

// Lazy defers evaluation until Evaluate; updates only mark it dirty.
func Lazy() WatcherOption {
	return func(c *watcherConfig) { c.lazy = true }
}

// Sync runs the watcher as soon as a dependency changes instead of queueing
// it for the next flush.
func Sync() WatcherOption {
	return func(c *watcherConfig) { c.sync = true }
}

// Immediate invokes the callback with the initial value. Only Watch honors
// it.
func Immediate() WatcherOption {
	return func(c *watcherConfig) { c.immediate = true }
}

// Before runs fn right before the watcher is re-run by a flush.
func Before(fn func()) WatcherOption {
	return func(c *watcherConfig) { c.before = fn }
}

// Expression sets the text used to identify the watcher in diagnostics.
func Expression(s string) WatcherOption {
	return func(c *watcherConfig) { c.expression = s }
}

type Watcher struct {
	rs    *ReactiveSystem
	scope *Scope
	id    int

	getter Getter
	cb     Callback

	deep, user, lazy, sync bool
	before                 func()
	expression             string

	active bool
	dirty  bool
	value  any

	deps      []*Dep
	newDeps   []*Dep
	depIDs    mapset.Set[int]
	newDepIDs mapset.Set[int]
}

// NewWatcher creates a watcher for expOrFn, which is a Getter, a
// func() any, or a dot-delimited path resolved against scope's data.
// Unless lazy, the expression is evaluated right away; an error from a
// non-user watcher's first evaluation tears it down and is returned.
func (rs *ReactiveSystem) NewWatcher(scope *Scope, expOrFn any, cb Callback, opts ...WatcherOption) (*Watcher, error) {
	cfg := &watcherConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	rs.watcherUID++
	w := &Watcher{
		rs:         rs,
		scope:      scope,
		id:         rs.watcherUID,
		cb:         cb,
		deep:       cfg.deep,
		user:       cfg.user,
		lazy:       cfg.lazy,
		sync:       cfg.sync,
		before:     cfg.before,
		expression: cfg.expression,
		active:     true,
		dirty:      cfg.lazy,
		depIDs:     mapset.NewThreadUnsafeSet[int](),
		newDepIDs:  mapset.NewThreadUnsafeSet[int](),
	}

	switch fn := expOrFn.(type) {
	case Getter:
		w.getter = fn
	case func() (any, error):
		w.getter = fn
	case func() any:
		w.getter = func() (any, error) { return fn(), nil }
	case string:
		if w.expression == "" {
			w.expression = fn
		}
		path, err := rs.parsePath(fn)
		if err != nil {
			w.getter = func() (any, error) { return nil, nil }
			rs.warn(w, "Failed watching path: %q Watcher only accepts simple dot-delimited paths. For full control, use a function instead.", fn)
		} else {
			w.getter = func() (any, error) {
				if scope == nil {
					return nil, nil
				}
				return path.Resolve(scope.Data()), nil
			}
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidExpression, expOrFn)
	}

	if scope != nil {
		scope.watchers = append(scope.watchers, w)
	}

	if !w.lazy {
		v, err := w.get()
		if err != nil {
			w.Teardown()
			return nil, err
		}
		w.value = v
	}
	return w, nil
}

// get evaluates the getter and re-collects dependencies.
func (w *Watcher) get() (value any, err error) {
	rs := w.rs
	rs.pushTarget(w)
	defer func() {
		// touch every nested property so all of them are tracked
		if w.deep {
			rs.Traverse(value)
		}
		rs.popTarget()
		w.cleanupDeps()
	}()

	value, err = callGetter(w.getter)
	if err != nil {
		if w.user {
			rs.handleError(w, err, fmt.Sprintf(`getter for watcher "%s"`, w.expression))
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (w *Watcher) addDep(d *Dep) {
	id := d.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, d)
	if !w.depIDs.Contains(id) {
		d.AddSub(w)
	}
}

// cleanupDeps drops the watcher from deps it no longer reads and promotes
// the new generation.
func (w *Watcher) cleanupDeps() {
	for _, d := range w.deps {
		if !w.newDepIDs.Contains(d.id) {
			d.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()

	w.deps, w.newDeps = w.newDeps, w.deps
	clear(w.newDeps)
	w.newDeps = w.newDeps[:0]
}

// Update is called by a Dep when one of the watcher's dependencies changes.
func (w *Watcher) Update() {
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		if err := w.Run(); err != nil {
			w.rs.handleError(w, err, "sync watcher")
		}
	default:
		w.rs.queueWatcher(w)
	}
}

// Run re-evaluates the watcher and invokes the callback when the value
// changed. Non-primitive values always reach the callback since they may
// have been mutated in place. Deep watchers always do too.
func (w *Watcher) Run() error {
	if !w.active {
		return nil
	}

	value, err := w.get()
	if err != nil {
		return err
	}
	if sameValue(value, w.value) && !isObject(value) && !w.deep {
		return nil
	}

	oldValue := w.value
	w.value = value
	if w.cb == nil {
		return nil
	}
	if err := callCallback(w.cb, value, oldValue); err != nil {
		if w.user {
			w.rs.handleError(w, err, fmt.Sprintf(`callback for watcher "%s"`, w.expression))
			return nil
		}
		return err
	}
	return nil
}

// Evaluate computes the value of a lazy watcher. The watcher stays dirty if
// evaluation fails. A torn down watcher keeps its last value.
func (w *Watcher) Evaluate() error {
	if !w.active {
		return nil
	}
	v, err := w.get()
	if err != nil {
		return err
	}
	w.value = v
	w.dirty = false
	return nil
}

// Depend makes the active watcher depend on everything this watcher
// depends on.
func (w *Watcher) Depend() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Depend()
	}
}

// Teardown unsubscribes the watcher from all of its dependencies. A torn
// down watcher never runs again.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	if w.scope != nil && !w.scope.beingDestroyed {
		if i := slices.Index(w.scope.watchers, w); i >= 0 {
			w.scope.watchers = slices.Delete(w.scope.watchers, i, i+1)
		}
	}
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].RemoveSub(w)
	}
	clear(w.deps)
	w.deps = w.deps[:0]
	w.depIDs.Clear()
	w.active = false
}

func (w *Watcher) ID() int {
	return w.id
}

func (w *Watcher) Value() any {
	return w.value
}

func (w *Watcher) Dirty() bool {
	return w.dirty
}

func (w *Watcher) Active() bool {
	return w.active
}

func (w *Watcher) IsUser() bool {
	return w.user
}

func (w *Watcher) IsLazy() bool {
	return w.lazy
}

func (w *Watcher) Expression() string {
	return w.expression
}

func (w *Watcher) Scope() *Scope {
	return w.scope
}

// Deps returns the dependencies collected by the last evaluation.
func (w *Watcher) Deps() []*Dep {
	return slices.Clone(w.deps)
}
