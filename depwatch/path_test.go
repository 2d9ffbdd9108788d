package depwatch_test

import (
	"testing"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	root := depwatch.FromMap(map[string]any{
		"a": map[string]any{
			"b":    []any{map[string]any{"c": "deep"}},
			"$ref": 1,
			"ünï":  true,
		},
	})

	valid := map[string]any{
		"a.b.0.c":  "deep",
		"a.$ref":   1,
		"a.ünï":    true,
		"a.b.1.c":  nil,
		"a.b.x":    nil,
		"missing":  nil,
		"a.$ref.x": nil,
	}
	for path, want := range valid {
		t.Run(path, func(t *testing.T) {
			p, err := depwatch.ParsePath(path)
			require.NoError(t, err)
			assert.Equal(t, path, p.String())
			assert.Equal(t, want, p.Resolve(root))
		})
	}

	for _, path := range []string{"a[0]", "a b", "a-b", "a()", "a/b"} {
		_, err := depwatch.ParsePath(path)
		assert.ErrorIs(t, err, depwatch.ErrInvalidPath, path)
	}
}

func TestTraverseHandlesCycles(t *testing.T) {
	rs := newSystem(t)

	a := depwatch.NewObject()
	b := depwatch.NewObject()
	a.Set("b", b)
	b.Set("a", a)
	a.Set("v", 1)

	runs := 0
	_, err := rs.NewWatcher(nil, func() any { return a }, func(n, o any) error {
		runs++
		return nil
	}, depwatch.Deep())
	require.NoError(t, err)

	rs.Observe(a)
	w, err := rs.NewWatcher(nil, func() any { return a }, func(n, o any) error {
		runs++
		return nil
	}, depwatch.Deep())
	require.NoError(t, err)
	assert.Len(t, w.Deps(), 5, "a.b, b.a, a.v and both observers")

	a.Set("v", 2)
	rs.Drain()
	assert.Equal(t, 1, runs)
}

func TestTraverseSkipsFrozen(t *testing.T) {
	rs := newSystem(t)
	frozen := depwatch.FromMap(map[string]any{"x": 1})
	frozen.Freeze()
	data := observed(rs, map[string]any{"frozen": frozen, "y": 1})

	w, err := rs.NewWatcher(nil, func() any { return data }, nil, depwatch.Deep())
	require.NoError(t, err)
	assert.Len(t, w.Deps(), 2)
}
