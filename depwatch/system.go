package depwatch

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/watchparty/pkg/tick"
	"github.com/petermattis/goid"
)

// OnErrorFunc receives errors raised by user code: watcher getters and
// callbacks, immediate callbacks, nextTick callbacks and flush failures.
// from is nil when no watcher is involved.
type OnErrorFunc func(from *Watcher, err error, info string)

// ReactiveSystem owns one dependency graph. It is not safe for concurrent
// use; every read and write of its reactive values must happen on one
// logical thread.
type ReactiveSystem struct {
	cfg     Config
	onError OnErrorFunc
	logger  *slog.Logger

	depUID     int
	watcherUID int

	activeSub   *Watcher
	targetStack []*Watcher

	shouldObserve bool

	// scheduler
	queue     []*Watcher
	has       mapset.Set[int]
	circular  map[int]int
	aborted   mapset.Set[int]
	waiting   bool
	flushing  bool
	index     int
	flushGen  int
	onFlushed map[int]func([]*Watcher)
	flushedID int

	// nextTick
	callbacks []func()
	pending   bool
	micro     tick.Queue

	paths map[uint64]*Path

	owner int64
}

func CreateReactiveSystem(onError OnErrorFunc, opts ...Option) *ReactiveSystem {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "depwatch")
	}

	rs := &ReactiveSystem{
		cfg:           cfg,
		onError:       onError,
		logger:        logger,
		shouldObserve: true,
		has:           mapset.NewThreadUnsafeSet[int](),
		circular:      map[int]int{},
		aborted:       mapset.NewThreadUnsafeSet[int](),
		onFlushed:     map[int]func([]*Watcher){},
		paths:         map[uint64]*Path{},
	}
	if cfg.GoroutineCheck {
		rs.owner = goid.Get()
	}
	return rs
}

func (rs *ReactiveSystem) Config() Config {
	return rs.cfg
}

// Target is the watcher currently collecting dependencies, if any.
func (rs *ReactiveSystem) Target() *Watcher {
	return rs.activeSub
}

func (rs *ReactiveSystem) pushTarget(w *Watcher) {
	rs.checkGoroutine()
	rs.targetStack = append(rs.targetStack, w)
	rs.activeSub = w
}

func (rs *ReactiveSystem) popTarget() {
	lastIdx := len(rs.targetStack) - 1
	if lastIdx < 0 {
		return
	}
	rs.targetStack = rs.targetStack[:lastIdx]
	if lastIdx > 0 {
		rs.activeSub = rs.targetStack[lastIdx-1]
	} else {
		rs.activeSub = nil
	}
}

// PauseTracking suspends dependency collection until the matching
// ResumeTracking.
func (rs *ReactiveSystem) PauseTracking() {
	rs.pushTarget(nil)
}

func (rs *ReactiveSystem) ResumeTracking() {
	rs.popTarget()
}

// Untrack runs fn without collecting dependencies.
func (rs *ReactiveSystem) Untrack(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

// SetTrackingEnabled toggles whether Observe creates new wrappers. Values
// that are already observed keep working.
func (rs *ReactiveSystem) SetTrackingEnabled(enabled bool) {
	rs.shouldObserve = enabled
}

func (rs *ReactiveSystem) TrackingEnabled() bool {
	return rs.shouldObserve
}

func (rs *ReactiveSystem) handleError(from *Watcher, err error, info string) {
	if rs.onError != nil {
		rs.onError(from, err, info)
		return
	}

	attrs := []any{"info", info, "error", err}
	if from != nil {
		attrs = append(attrs, "watcher", from.id, "expression", from.expression)
	}
	rs.logger.Error("error in "+info, attrs...)
}

func (rs *ReactiveSystem) warn(w *Watcher, format string, args ...any) {
	if rs.cfg.Silent {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if rs.cfg.WarnHandler != nil {
		rs.cfg.WarnHandler(msg, w)
		return
	}
	if w != nil {
		rs.logger.Warn(msg, "watcher", w.id, "expression", w.expression)
		return
	}
	rs.logger.Warn(msg)
}

func (rs *ReactiveSystem) checkGoroutine() {
	if rs.owner == 0 {
		return
	}
	if gid := goid.Get(); gid != rs.owner {
		rs.warn(nil, "reactive graph touched from goroutine %d, owned by goroutine %d", gid, rs.owner)
	}
}
