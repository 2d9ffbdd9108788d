package depwatch

import (
	"slices"
	"sort"
)

// Property describes one own key of an Object. A property is either a plain
// value or an accessor pair. Accessor reads and writes run Get and Set; a
// property with Get and no Set ignores writes.
type Property struct {
	Value        any
	Get          func() any
	Set          func(v any)
	Configurable bool
}

func (p *Property) isAccessor() bool {
	return p.Get != nil || p.Set != nil
}

// Object is a string-keyed container whose properties can be turned into
// tracked accessors. Keys keep insertion order.
type Object struct {
	keys   []string
	props  map[string]*Property
	ob     *Observer
	sealed bool
	frozen bool
	raw    bool
}

func NewObject() *Object {
	return &Object{props: map[string]*Property{}}
}

// FromMap builds an Object from m, converting nested maps and slices into
// Objects and Arrays. Keys are added in sorted order.
func FromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, wrapPlain(m[k]))
	}
	return o
}

func wrapPlain(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return FromMap(x)
	case []any:
		return FromSlice(x)
	}
	return v
}

// Get reads key. Reads of reactive properties are tracked.
func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

func (o *Object) Lookup(key string) (any, bool) {
	p, ok := o.props[key]
	if !ok {
		return nil, false
	}
	if p.Get != nil {
		return p.Get(), true
	}
	if p.Set != nil {
		return nil, true
	}
	return p.Value, true
}

// Set writes key. A new key on an observed Object becomes a plain,
// untracked property; use ReactiveSystem.Set to add tracked keys.
func (o *Object) Set(key string, v any) {
	p, ok := o.props[key]
	if !ok {
		if o.sealed {
			return
		}
		o.keys = append(o.keys, key)
		o.props[key] = &Property{Value: v, Configurable: true}
		return
	}

	switch {
	case p.Set != nil:
		p.Set(v)
	case p.Get != nil:
	case o.frozen:
	default:
		p.Value = v
	}
}

// Delete removes key and reports whether it was removed.
func (o *Object) Delete(key string) bool {
	p, ok := o.props[key]
	if !ok {
		return true
	}
	if !p.Configurable {
		return false
	}
	delete(o.props, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return true
}

func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Property returns a copy of key's descriptor.
func (o *Object) Property(key string) (Property, bool) {
	p, ok := o.props[key]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// DefineProperty installs or replaces key. It fails on a non-configurable
// existing key and on a new key of a non-extensible Object.
func (o *Object) DefineProperty(key string, p Property) bool {
	existing, ok := o.props[key]
	if ok {
		if !existing.Configurable {
			return false
		}
		*existing = p
		return true
	}
	if o.sealed {
		return false
	}
	o.keys = append(o.keys, key)
	o.props[key] = &p
	return true
}

// PreventExtensions forbids new keys. Such Objects are never observed.
func (o *Object) PreventExtensions() {
	o.sealed = true
}

func (o *Object) IsExtensible() bool {
	return !o.sealed
}

// Freeze makes every property read-only and non-configurable.
func (o *Object) Freeze() {
	o.sealed = true
	o.frozen = true
	for _, p := range o.props {
		p.Configurable = false
	}
}

func (o *Object) IsFrozen() bool {
	return o.frozen
}

// Observer returns the wrapper attached by Observe, or nil.
func (o *Object) Observer() *Observer {
	return o.ob
}

// ToMap converts o into plain maps and slices. Reads are tracked.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = ToRaw(o.Get(k))
	}
	return m
}

// MarkRaw keeps v from ever being observed. It returns v.
func MarkRaw[T interface{ *Object | *Array }](v T) T {
	switch x := any(v).(type) {
	case *Object:
		x.raw = true
	case *Array:
		x.raw = true
	}
	return v
}

// ToRaw unwraps Objects and Arrays into plain maps and slices.
func ToRaw(v any) any {
	switch x := v.(type) {
	case *Object:
		if x == nil {
			return nil
		}
		return x.ToMap()
	case *Array:
		if x == nil {
			return nil
		}
		return x.ToSlice()
	}
	return v
}
