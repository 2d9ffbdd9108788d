package tick

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

var ErrLoopClosed = errors.New("tick: loop closed")

// Loop is a single goroutine event loop. Tasks posted from any goroutine run
// one at a time on the goroutine that called Run, and the microtask queue is
// drained after every task, so work deferred with Microtask runs before the
// next posted task is picked up.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
	micro     Queue
	owner     atomic.Int64
}

func NewLoop(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop goroutine and waits for it, including the
// microtasks it queued. Called from the loop goroutine itself it runs fn
// inline.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	if l.InLoop() {
		return fn()
	}

	result := make(chan error, 1)
	task := func() {
		err := fn()
		l.micro.Drain()
		result <- err
	}
	if err := l.Post(task); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Microtask defers fn until the current task finishes. It must only be
// called from the loop goroutine.
func (l *Loop) Microtask(fn func()) {
	l.micro.Push(fn)
}

// InLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) InLoop() bool {
	return l.owner.Load() == goid.Get()
}

// Run processes tasks until ctx is cancelled or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	l.owner.Store(goid.Get())
	defer l.owner.Store(0)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
			l.micro.Drain()
		}
	}
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}
