package tick_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/delaneyj/watchparty/pkg/tick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainsInOrder(t *testing.T) {
	q := &tick.Queue{}
	var log []int
	q.Push(func() { log = append(log, 1) })
	q.Push(func() {
		log = append(log, 2)
		q.Push(func() { log = append(log, 4) })
	})
	q.Push(func() { log = append(log, 3) })

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 4, q.Drain())
	assert.Equal(t, []int{1, 2, 3, 4}, log)
	assert.Equal(t, 0, q.Len())
}

func TestQueueNestedDrainIsNoop(t *testing.T) {
	q := &tick.Queue{}
	nested := -1
	q.Push(func() {
		q.Push(func() {})
		nested = q.Drain()
	})

	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, 0, nested)
}

func TestQueueKeepsTasksAfterPanic(t *testing.T) {
	q := &tick.Queue{}
	ran := false
	q.Push(func() { panic("boom") })
	q.Push(func() { ran = true })

	assert.Panics(t, func() { q.Drain() })
	assert.False(t, ran)
	require.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.Drain())
	assert.True(t, ran)
}

func TestLoopRunsMicrotasksBeforeNextTask(t *testing.T) {
	loop := tick.NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var log []string
	err := loop.Do(ctx, func() error {
		assert.True(t, loop.InLoop())
		loop.Microtask(func() { log = append(log, "micro") })
		log = append(log, "task")
		return nil
	})
	require.NoError(t, err)

	err = loop.Do(ctx, func() error {
		log = append(log, "next")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"task", "micro", "next"}, log)
	assert.False(t, loop.InLoop())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopDoReturnsTaskError(t *testing.T) {
	loop := tick.NewLoop(0)
	ctx := context.Background()
	go loop.Run(ctx)
	defer loop.Close()

	boom := errors.New("boom")
	err := loop.Do(ctx, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLoopClosed(t *testing.T) {
	loop := tick.NewLoop(0)
	loop.Close()
	loop.Close()

	assert.ErrorIs(t, loop.Post(func() {}), tick.ErrLoopClosed)
	assert.ErrorIs(t, loop.Do(context.Background(), func() error { return nil }), tick.ErrLoopClosed)
	assert.NoError(t, loop.Run(context.Background()))
}
