package depwatch

import mapset "github.com/deckarep/golang-set/v2"

// Traverse reads every property reachable from v so that the active
// watcher depends on all of them. Frozen containers are skipped. Each
// container is visited once per call, keyed by its Observer's dep id, or by
// identity when it is not observed.
func (rs *ReactiveSystem) Traverse(v any) {
	seen := mapset.NewThreadUnsafeSet[any]()
	traverse(v, seen)
}

func traverse(v any, seen mapset.Set[any]) {
	switch x := v.(type) {
	case *Object:
		if x == nil || x.frozen || !visit(x, x.ob, seen) {
			return
		}
		for _, k := range x.Keys() {
			traverse(x.Get(k), seen)
		}
	case *Array:
		if x == nil || x.frozen || !visit(x, x.ob, seen) {
			return
		}
		for _, item := range x.items {
			traverse(item, seen)
		}
	}
}

func visit(container any, ob *Observer, seen mapset.Set[any]) bool {
	var key any = container
	if ob != nil {
		key = ob.dep.id
	}
	return seen.Add(key)
}
