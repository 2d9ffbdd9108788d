package depwatch

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	ErrRunaway           = errors.New("depwatch: runaway watcher")
	ErrInvalidPath       = errors.New("depwatch: invalid watch path")
	ErrInvalidExpression = errors.New("depwatch: unsupported watcher expression")
)

// PanicError carries a value recovered from user code along with the stack
// at the point of the panic.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("depwatch: panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func callGetter(fn Getter) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, newPanicError(r)
		}
	}()
	return fn()
}

func callCallback(cb Callback, newValue, oldValue any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return cb(newValue, oldValue)
}

func callHook(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	fn()
	return nil
}
