package depwatch

import "slices"

// Scope owns a group of watchers and, optionally, the root data object that
// path expressions resolve against. Destroying a scope tears down every
// watcher it owns.
type Scope struct {
	rs             *ReactiveSystem
	data           *Object
	watchers       []*Watcher
	beingDestroyed bool
	destroyed      bool
}

func (rs *ReactiveSystem) NewScope() *Scope {
	return &Scope{rs: rs}
}

// SetData observes data as the scope's root data. Root data cannot gain or
// lose keys through Set and Del.
func (s *Scope) SetData(data *Object) *Observer {
	if s.data != nil && s.data.ob != nil {
		s.data.ob.vmCount--
	}
	s.data = data
	return s.rs.ObserveRoot(data)
}

func (s *Scope) Data() *Object {
	return s.data
}

func (s *Scope) Watchers() []*Watcher {
	return slices.Clone(s.watchers)
}

func (s *Scope) Destroyed() bool {
	return s.destroyed
}

func (s *Scope) Destroy() {
	if s.beingDestroyed {
		return
	}
	s.beingDestroyed = true

	for i := len(s.watchers) - 1; i >= 0; i-- {
		s.watchers[i].Teardown()
	}
	s.watchers = nil

	if s.data != nil && s.data.ob != nil {
		s.data.ob.vmCount--
	}
	s.destroyed = true
}
