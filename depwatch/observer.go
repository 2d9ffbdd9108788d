package depwatch

// Observer is attached to every observed Object or Array. It owns the
// container-level Dep notified on structural change and counts how many
// scopes use the value as root data.
type Observer struct {
	rs      *ReactiveSystem
	value   any
	dep     *Dep
	vmCount int
}

func (rs *ReactiveSystem) newObserver(value any) *Observer {
	ob := &Observer{rs: rs, value: value, dep: rs.NewDep()}
	switch v := value.(type) {
	case *Array:
		v.ob = ob
		ob.ObserveArray(v.items)
	case *Object:
		v.ob = ob
		ob.Walk(v)
	}
	return ob
}

func (ob *Observer) Value() any {
	return ob.value
}

func (ob *Observer) Dep() *Dep {
	return ob.dep
}

// VMCount is the number of scopes using this value as root data.
func (ob *Observer) VMCount() int {
	return ob.vmCount
}

// Walk turns every own key of obj into a reactive property.
func (ob *Observer) Walk(obj *Object) {
	for _, key := range obj.Keys() {
		ob.rs.defineReactive(obj, key, nil, false, nil, false)
	}
}

func (ob *Observer) ObserveArray(items []any) {
	for _, item := range items {
		ob.rs.Observe(item)
	}
}

// Observe attaches an Observer to value and returns it. It returns the
// existing Observer if value is already observed, and nil when value is not
// an Object or Array, is raw or non-extensible, or tracking is disabled.
func (rs *ReactiveSystem) Observe(value any) *Observer {
	return rs.observe(value, false)
}

// ObserveRoot observes value as the root data of a scope.
func (rs *ReactiveSystem) ObserveRoot(value any) *Observer {
	return rs.observe(value, true)
}

func (rs *ReactiveSystem) observe(value any, asRootData bool) *Observer {
	var ob *Observer
	switch v := value.(type) {
	case *Object:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if rs.shouldObserve && !v.sealed && !v.raw {
			ob = rs.newObserver(v)
		}
	case *Array:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if rs.shouldObserve && !v.frozen && !v.raw {
			ob = rs.newObserver(v)
		}
	default:
		return nil
	}

	if asRootData && ob != nil {
		ob.vmCount++
	}
	return ob
}

// dependArray collects every observed element of a, recursively, since
// element access is not tracked per index.
func dependArray(a *Array) {
	for _, e := range a.items {
		switch x := e.(type) {
		case *Object:
			if x != nil && x.ob != nil {
				x.ob.dep.Depend()
			}
		case *Array:
			if x == nil {
				continue
			}
			if x.ob != nil {
				x.ob.dep.Depend()
			}
			dependArray(x)
		}
	}
}
