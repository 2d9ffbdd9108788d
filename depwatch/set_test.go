package depwatch_test

import (
	"testing"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAddsReactiveKey(t *testing.T) {
	rs := newSystem(t)
	data := observed(rs, map[string]any{"nested": map[string]any{}})
	nested := data.Get("nested").(*depwatch.Object)

	var values []any
	_, err := rs.NewWatcher(nil, func() any {
		return data.Get("nested").(*depwatch.Object).Get("added")
	}, func(n, o any) error {
		values = append(values, n)
		return nil
	})
	require.NoError(t, err)

	// a plain write of a new key is invisible
	nested.Set("plain", 1)
	assert.Equal(t, 0, rs.Pending())

	assert.Equal(t, 1, rs.Set(nested, "added", 1))
	rs.Drain()
	assert.Equal(t, []any{1}, values)

	nested.Set("added", 2)
	rs.Drain()
	assert.Equal(t, []any{1, 2}, values)

	rs.Set(nested, "added", 3)
	rs.Drain()
	assert.Equal(t, []any{1, 2, 3}, values)
}

func TestSetOnArrayIndex(t *testing.T) {
	rs := newSystem(t)
	data := observed(rs, map[string]any{"list": []any{"a"}})
	list := data.Get("list").(*depwatch.Array)

	runs := 0
	_, err := rs.NewWatcher(nil, func() any { return data.Get("list") }, func(n, o any) error {
		runs++
		return nil
	})
	require.NoError(t, err)

	rs.Set(list, 0, "b")
	rs.Set(list, 3, depwatch.FromMap(map[string]any{"x": 1}))
	rs.Drain()

	assert.Equal(t, 1, runs)
	assert.Equal(t, 4, list.Len())
	assert.Equal(t, "b", list.At(0))
	assert.Nil(t, list.At(1))
	assert.NotNil(t, list.At(3).(*depwatch.Object).Observer())

	rs.Del(list, 1)
	rs.Drain()
	assert.Equal(t, 2, runs)
	assert.Equal(t, 3, list.Len())
}

func TestSetOnUnobservedTarget(t *testing.T) {
	rs := newSystem(t)
	obj := depwatch.NewObject()

	rs.Set(obj, "k", 1)
	assert.Equal(t, 1, obj.Get("k"))
	p, ok := obj.Property("k")
	require.True(t, ok)
	assert.Nil(t, p.Get)

	rs.Del(obj, "k")
	assert.False(t, obj.Has("k"))
}

func TestSetWarnsOnInvalidTargets(t *testing.T) {
	var warnings []string
	rs := newSystem(t, collectWarnings(&warnings))

	scope := rs.NewScope()
	root := depwatch.FromMap(map[string]any{"a": 1})
	scope.SetData(root)

	cases := []struct {
		name string
		do   func()
		want string
	}{
		{"primitive", func() { rs.Set(1, "a", 1) }, "primitive value"},
		{"nil", func() { rs.Set(nil, "a", 1) }, "primitive value"},
		{"scope", func() { rs.Set(scope, "a", 1) }, "Avoid adding reactive properties"},
		{"root data", func() { rs.Set(root, "b", 1) }, "Avoid adding reactive properties"},
		{"array key", func() { rs.Set(depwatch.NewArray(), "x", 1) }, "non-index key"},
		{"delete primitive", func() { rs.Del("s", "a") }, "primitive value"},
		{"delete scope", func() { rs.Del(scope, "a") }, "Avoid deleting properties"},
		{"delete root data", func() { rs.Del(root, "a") }, "Avoid deleting properties"},
		{"delete array key", func() { rs.Del(depwatch.NewArray(), -1) }, "non-index key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			warnings = nil
			tc.do()
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0], tc.want)
		})
	}

	assert.False(t, root.Has("b"))
	assert.True(t, root.Has("a"))

	// existing keys on root data can still be written
	rs.Set(root, "a", 2)
	assert.Equal(t, 2, root.Get("a"))
}

func TestDelNotifies(t *testing.T) {
	rs := newSystem(t)
	data := observed(rs, map[string]any{"obj": map[string]any{"a": 1, "b": 2}})
	obj := data.Get("obj").(*depwatch.Object)

	var keys [][]string
	_, err := rs.NewWatcher(nil, func() any {
		return data.Get("obj").(*depwatch.Object).Keys()
	}, func(n, o any) error {
		keys = append(keys, n.([]string))
		return nil
	})
	require.NoError(t, err)

	rs.Del(obj, "a")
	rs.Del(obj, "missing")
	rs.Drain()

	assert.Equal(t, [][]string{{"b"}}, keys)
}
