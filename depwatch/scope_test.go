package depwatch_test

import (
	"testing"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDestroyTearsDownWatchers(t *testing.T) {
	rs := newSystem(t)
	scope := rs.NewScope()
	ob := scope.SetData(depwatch.FromMap(map[string]any{"a": 1, "b": 2}))
	require.NotNil(t, ob)
	assert.Equal(t, 1, ob.VMCount())

	runs := 0
	count := func(n, o any) error {
		runs++
		return nil
	}
	_, err := rs.Watch(scope, "a", count)
	require.NoError(t, err)
	w, err := rs.NewWatcher(scope, "b", count)
	require.NoError(t, err)
	c := rs.Computed(scope, func() (any, error) { return scope.Data().Get("a"), nil })
	assert.Len(t, scope.Watchers(), 3)

	w.Teardown()
	assert.Len(t, scope.Watchers(), 2)

	scope.Destroy()
	assert.True(t, scope.Destroyed())
	assert.Empty(t, scope.Watchers())
	assert.False(t, c.Watcher().Active())
	assert.Equal(t, 0, ob.VMCount())

	scope.Data().Set("a", 5)
	scope.Data().Set("b", 5)
	rs.Drain()
	assert.Equal(t, 0, runs)

	scope.Destroy()
	assert.Equal(t, 0, ob.VMCount())
}

func TestScopeSetDataReplacesRoot(t *testing.T) {
	rs := newSystem(t)
	scope := rs.NewScope()

	first := scope.SetData(depwatch.FromMap(map[string]any{"v": 1}))
	second := scope.SetData(depwatch.FromMap(map[string]any{"v": 2}))
	assert.Equal(t, 0, first.VMCount())
	assert.Equal(t, 1, second.VMCount())
	assert.Equal(t, 2, scope.Data().Get("v"))
}
