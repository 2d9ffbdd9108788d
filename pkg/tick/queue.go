package tick

// Queue is a FIFO of deferred callbacks, the microtask list of a single
// logical thread. It is not safe for concurrent use.
type Queue struct {
	tasks    []func()
	draining bool
}

func (q *Queue) Push(fn func()) {
	q.tasks = append(q.tasks, fn)
}

func (q *Queue) Len() int {
	return len(q.tasks)
}

// Drain runs queued callbacks until the queue is empty, including callbacks
// pushed while draining. A nested Drain from inside a callback returns 0 and
// leaves the work to the outer call. If a callback panics the callbacks that
// did not run stay queued.
func (q *Queue) Drain() (ran int) {
	if q.draining {
		return 0
	}
	q.draining = true

	var rest []func()
	defer func() {
		q.draining = false
		if len(rest) > 0 {
			q.tasks = append(rest, q.tasks...)
		}
	}()

	for len(q.tasks) > 0 {
		batch := q.tasks
		q.tasks = nil
		for i, fn := range batch {
			rest = batch[i+1:]
			fn()
			ran++
		}
		rest = nil
	}
	return ran
}
