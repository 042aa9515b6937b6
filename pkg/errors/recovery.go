package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered panic value into a fatal internal error carrying the
// stack trace under the "stack_trace" detail. The panic value stays reachable through Cause.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = errors.New(v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}
