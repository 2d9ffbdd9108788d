package depwatch

import "fmt"

// Set writes key on target, making the key reactive when it is new and
// target is observed. Arrays take an int index and grow as needed. It
// returns val.
func (rs *ReactiveSystem) Set(target any, key any, val any) any {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		i, ok := key.(int)
		if !ok || i < 0 {
			rs.warn(nil, "Cannot set reactive property on array with non-index key: %v", key)
			return val
		}
		if i > len(t.items) && !t.frozen {
			t.items = append(t.items, make([]any, i-len(t.items))...)
		}
		t.Splice(i, 1, val)
		return val

	case *Object:
		if t == nil {
			break
		}
		k := keyString(key)
		if t.Has(k) {
			t.Set(k, val)
			return val
		}
		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			rs.warn(nil, "Avoid adding reactive properties to a scope or its root data at runtime - declare it upfront in the data option.")
			return val
		}
		if ob == nil {
			t.Set(k, val)
			return val
		}
		rs.defineReactive(t, k, val, true, nil, false)
		ob.dep.Notify()
		return val

	case *Scope:
		rs.warn(nil, "Avoid adding reactive properties to a scope or its root data at runtime - declare it upfront in the data option.")
		return val
	}

	rs.warn(nil, "Cannot set reactive property on undefined, null, or primitive value: %v", target)
	return val
}

// Del removes key from target and notifies target's watchers.
func (rs *ReactiveSystem) Del(target any, key any) {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		i, ok := key.(int)
		if !ok || i < 0 {
			rs.warn(nil, "Cannot delete reactive property on array with non-index key: %v", key)
			return
		}
		t.Splice(i, 1)
		return

	case *Object:
		if t == nil {
			break
		}
		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			rs.warn(nil, "Avoid deleting properties on a scope or its root data - just set it to nil.")
			return
		}
		k := keyString(key)
		if !t.Has(k) {
			return
		}
		if !t.Delete(k) {
			return
		}
		if ob == nil {
			return
		}
		ob.dep.Notify()
		return

	case *Scope:
		rs.warn(nil, "Avoid deleting properties on a scope or its root data - just set it to nil.")
		return
	}

	rs.warn(nil, "Cannot delete reactive property on undefined, null, or primitive value: %v", target)
}

func keyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}
