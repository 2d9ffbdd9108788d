package depwatch_test

import (
	"errors"
	"testing"
	"time"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunawayWatcherStopsWithOneDiagnostic(t *testing.T) {
	var warnings []string
	rs := newSystem(t, collectWarnings(&warnings))
	data := observed(rs, map[string]any{"n": 0})

	runs := 0
	_, err := rs.Watch(nil, func() any { return data.Get("n") }, func(n, o any) error {
		runs++
		data.Set("n", n.(int)+1)
		return nil
	}, depwatch.Expression("n"))
	require.NoError(t, err)

	data.Set("n", 1)
	rs.Drain()

	assert.Equal(t, depwatch.DefaultMaxUpdateCount+1, runs)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `infinite update loop in watcher with expression "n"`)
	assert.Equal(t, 0, rs.Pending())

	rs.Drain()
	assert.Equal(t, depwatch.DefaultMaxUpdateCount+1, runs)
}

func TestRunawayOnlySkipsTheOffender(t *testing.T) {
	var warnings []string
	rs := newSystem(t, collectWarnings(&warnings), depwatch.WithMaxUpdateCount(5))
	data := observed(rs, map[string]any{"n": 0, "m": 0})

	runs := 0
	_, err := rs.NewWatcher(nil, func() any { return data.Get("n") }, func(n, o any) error {
		runs++
		data.Set("n", n.(int)+1)
		return nil
	})
	require.NoError(t, err)

	var seen []any
	_, err = rs.NewWatcher(nil, func() any { return data.Get("m") }, func(n, o any) error {
		seen = append(seen, n)
		return nil
	})
	require.NoError(t, err)

	data.Set("n", 1)
	data.Set("m", 1)
	rs.Drain()

	assert.Equal(t, 6, runs)
	assert.Equal(t, []any{1}, seen)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "render function")
}

func TestWatcherQueuedDuringFlushRunsInSamePass(t *testing.T) {
	rs := newSystem(t)
	data := observed(rs, map[string]any{"x": 0, "y": 0})

	var log []string
	_, err := rs.NewWatcher(nil, func() any { return data.Get("x") }, func(n, o any) error {
		log = append(log, "a")
		data.Set("y", 1)
		return nil
	})
	require.NoError(t, err)
	_, err = rs.NewWatcher(nil, func() any { return data.Get("y") }, func(n, o any) error {
		log = append(log, "b")
		data.Set("x", 100)
		return nil
	})
	require.NoError(t, err)

	flushes := 0
	var ran []*depwatch.Watcher
	remove := rs.OnFlushed(func(watchers []*depwatch.Watcher) {
		flushes++
		ran = watchers
	})

	data.Set("x", 1)
	rs.Drain()

	assert.Equal(t, []string{"a", "b", "a"}, log)
	assert.Equal(t, 1, flushes)
	require.Len(t, ran, 3)
	assert.Equal(t, []int{1, 2, 1}, []int{ran[0].ID(), ran[1].ID(), ran[2].ID()})

	remove()
	data.Set("x", 2)
	rs.Drain()
	assert.Equal(t, 1, flushes)
}

func TestFlushSync(t *testing.T) {
	rs := newSystem(t)
	data := observed(rs, map[string]any{"a": 1})

	runs := 0
	w, err := rs.NewWatcher(nil, func() any { return data.Get("a") }, func(n, o any) error {
		runs++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, rs.FlushSync())

	data.Set("a", 2)
	require.NoError(t, rs.FlushSync())
	assert.Equal(t, 2, w.Value())
	assert.Equal(t, 1, runs)

	// the flush already scheduled on the microtask queue is now stale
	rs.Drain()
	assert.Equal(t, 1, runs)

	data.Set("a", 3)
	rs.Drain()
	assert.Equal(t, 2, runs)
}

func TestFlushErrorsAreJoined(t *testing.T) {
	var errs []handled
	rs := newCollectingSystem(&errs)
	data := observed(rs, map[string]any{"a": 1})

	errA, errB := errors.New("a failed"), errors.New("b failed")
	for _, e := range []error{errA, errB} {
		fail := false
		_, err := rs.NewWatcher(nil, depwatch.Getter(func() (any, error) {
			v := data.Get("a")
			if fail {
				return nil, e
			}
			fail = true
			return v, nil
		}), nil)
		require.NoError(t, err)
	}

	ran := 0
	rs.OnFlushed(func(w []*depwatch.Watcher) { ran = len(w) })

	data.Set("a", 2)
	rs.Drain()

	assert.Equal(t, 2, ran)
	require.Len(t, errs, 1)
	assert.Equal(t, "flush", errs[0].info)
	assert.ErrorIs(t, errs[0].err, errA)
	assert.ErrorIs(t, errs[0].err, errB)
}

func TestSynchronousMode(t *testing.T) {
	rs := newSystem(t, depwatch.WithAsync(false))
	data := observed(rs, map[string]any{"a": 1})

	var log []string
	_, err := rs.NewWatcher(nil, func() any { return data.Get("a") }, func(n, o any) error {
		log = append(log, "first")
		return nil
	})
	require.NoError(t, err)
	_, err = rs.NewWatcher(nil, func() any { return data.Get("a") }, func(n, o any) error {
		log = append(log, "second")
		return nil
	})
	require.NoError(t, err)

	data.Set("a", 2)
	assert.Equal(t, []string{"first", "second"}, log)
	assert.Equal(t, 0, rs.Pending())
	assert.Equal(t, 0, rs.Drain())
}

type recordingMonitor struct {
	depwatch.NopMonitor
	started  []int
	watchers []int
	finished []int
	runaways []error
}

func (m *recordingMonitor) FlushStarted(queued int) {
	m.started = append(m.started, queued)
}

func (m *recordingMonitor) WatcherFinished(w *depwatch.Watcher, elapsed time.Duration, err error) {
	m.watchers = append(m.watchers, w.ID())
}

func (m *recordingMonitor) FlushFinished(ran int, elapsed time.Duration, err error) {
	m.finished = append(m.finished, ran)
}

func (m *recordingMonitor) RunawayAborted(w *depwatch.Watcher, err error) {
	m.runaways = append(m.runaways, err)
}

func TestMonitorSeesFlushes(t *testing.T) {
	m := &recordingMonitor{}
	other := &recordingMonitor{}
	rs := newSystem(t, depwatch.WithSilent(), depwatch.WithMaxUpdateCount(2),
		depwatch.WithMonitor(depwatch.MultiMonitor(m, nil, other)))
	data := observed(rs, map[string]any{"a": 1, "loop": 0})

	w, err := rs.NewWatcher(nil, func() any { return data.Get("a") }, nil)
	require.NoError(t, err)
	_, err = rs.NewWatcher(nil, func() any { return data.Get("loop") }, func(n, o any) error {
		data.Set("loop", n.(int)+1)
		return nil
	})
	require.NoError(t, err)

	data.Set("a", 2)
	rs.Drain()
	assert.Equal(t, []int{1}, m.started)
	assert.Equal(t, []int{w.ID()}, m.watchers)
	assert.Equal(t, []int{1}, m.finished)
	assert.Equal(t, m.finished, other.finished)

	data.Set("loop", 1)
	rs.Drain()
	require.Len(t, m.runaways, 1)
	assert.ErrorIs(t, m.runaways[0], depwatch.ErrRunaway)
	assert.Equal(t, []int{1, 3}, m.finished)
}
