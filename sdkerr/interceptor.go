package sdkerr

import "fmt"

// InterceptorError is a failure raised by an interceptor hook.
type InterceptorError struct {
	// Hook is the lifecycle hook that failed (e.g., "read_before_execution").
	Hook string
	// Source is the name of the failing interceptor.
	Source string
	Err    error
}

func (e *InterceptorError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s interceptor encountered an error: %v", e.Hook, e.Err)
	}
	return fmt.Sprintf("%s interceptor %q encountered an error: %v", e.Hook, e.Source, e.Err)
}

// Unwrap returns the hook's error.
func (e *InterceptorError) Unwrap() error {
	return e.Err
}
