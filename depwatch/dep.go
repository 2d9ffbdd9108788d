package depwatch

import (
	"slices"
	"sort"
)

// Dep is the subscriber list of one observable cell. A Dep belongs to each
// reactive property and to each Observer, the latter being notified on
// structural changes such as added keys or array mutations.
type Dep struct {
	rs   *ReactiveSystem
	id   int
	subs []*Watcher
}

func (rs *ReactiveSystem) NewDep() *Dep {
	rs.depUID++
	return &Dep{rs: rs, id: rs.depUID}
}

func (d *Dep) ID() int {
	return d.id
}

// Subs returns a snapshot of the current subscribers.
func (d *Dep) Subs() []*Watcher {
	return slices.Clone(d.subs)
}

func (d *Dep) AddSub(w *Watcher) {
	d.subs = append(d.subs, w)
}

func (d *Dep) RemoveSub(w *Watcher) {
	if i := slices.Index(d.subs, w); i >= 0 {
		d.subs = slices.Delete(d.subs, i, i+1)
	}
}

// Depend records d as a dependency of the active watcher.
func (d *Dep) Depend() {
	if target := d.rs.activeSub; target != nil {
		target.addDep(d)
	}
}

func (d *Dep) Notify() {
	d.rs.checkGoroutine()

	// teardown during notification must not disturb this iteration
	subs := slices.Clone(d.subs)
	if !d.rs.cfg.Async {
		sort.SliceStable(subs, func(i, j int) bool {
			return subs[i].id < subs[j].id
		})
	}
	for _, sub := range subs {
		sub.Update()
	}
}
