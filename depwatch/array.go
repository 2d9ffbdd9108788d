package depwatch

import (
	"fmt"
	"slices"
	"sort"
)

// Array is a sequence whose mutating methods notify the Array's Observer.
// Index reads and writes through At and SetAt are not tracked; use
// ReactiveSystem.Set to replace an element reactively.
type Array struct {
	items  []any
	ob     *Observer
	frozen bool
	raw    bool
}

func NewArray(items ...any) *Array {
	return &Array{items: items}
}

// FromSlice builds an Array from s, converting nested maps and slices.
func FromSlice(s []any) *Array {
	items := make([]any, len(s))
	for i, v := range s {
		items[i] = wrapPlain(v)
	}
	return &Array{items: items}
}

func (a *Array) Len() int {
	return len(a.items)
}

func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

func (a *Array) SetAt(i int, v any) {
	if a.frozen || i < 0 || i >= len(a.items) {
		return
	}
	a.items[i] = v
}

// Items returns a snapshot of the elements.
func (a *Array) Items() []any {
	return slices.Clone(a.items)
}

func (a *Array) ToSlice() []any {
	out := make([]any, len(a.items))
	for i, v := range a.items {
		out[i] = ToRaw(v)
	}
	return out
}

func (a *Array) Observer() *Observer {
	return a.ob
}

// Freeze makes the Array immutable; mutators become no-ops.
func (a *Array) Freeze() {
	a.frozen = true
}

func (a *Array) IsFrozen() bool {
	return a.frozen
}

func (a *Array) Push(items ...any) int {
	if a.frozen {
		return len(a.items)
	}
	a.items = append(a.items, items...)
	a.changed(items)
	return len(a.items)
}

func (a *Array) Pop() any {
	if a.frozen || len(a.items) == 0 {
		return nil
	}
	last := len(a.items) - 1
	v := a.items[last]
	a.items[last] = nil
	a.items = a.items[:last]
	a.changed(nil)
	return v
}

func (a *Array) Shift() any {
	if a.frozen || len(a.items) == 0 {
		return nil
	}
	v := a.items[0]
	a.items = slices.Delete(a.items, 0, 1)
	a.changed(nil)
	return v
}

func (a *Array) Unshift(items ...any) int {
	if a.frozen {
		return len(a.items)
	}
	a.items = slices.Insert(a.items, 0, items...)
	a.changed(items)
	return len(a.items)
}

// Splice removes deleteCount elements at start, inserts items in their
// place and returns the removed elements. A negative start counts from the
// end; start and deleteCount are clamped to the Array bounds.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	if a.frozen {
		return nil
	}
	n := len(a.items)
	switch {
	case start < 0:
		start = max(n+start, 0)
	case start > n:
		start = n
	}
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, items...)
	a.changed(items)
	return removed
}

// Sort orders the elements with less. A nil less compares the elements'
// fmt.Sprint forms, like a default string sort.
func (a *Array) Sort(less func(x, y any) bool) {
	if a.frozen {
		return
	}
	if less == nil {
		less = func(x, y any) bool {
			return fmt.Sprint(x) < fmt.Sprint(y)
		}
	}
	sort.SliceStable(a.items, func(i, j int) bool {
		return less(a.items[i], a.items[j])
	})
	a.changed(nil)
}

func (a *Array) Reverse() {
	if a.frozen {
		return
	}
	slices.Reverse(a.items)
	a.changed(nil)
}

// changed observes inserted elements and notifies the Array's watchers.
func (a *Array) changed(inserted []any) {
	ob := a.ob
	if ob == nil {
		return
	}
	if len(inserted) > 0 {
		ob.ObserveArray(inserted)
	}
	ob.dep.Notify()
}
