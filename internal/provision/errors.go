package provision

import (
	"errors"
	"fmt"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrExternalCall      = errors.New("external call failed")
)

// MissingDependencyError reports a manifest name a step needs but cannot find.
type MissingDependencyError struct {
	Step string
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("step %s: %s: %s not deployed", e.Step, ErrMissingDependency, e.Name)
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependency
}

// ExternalCallError reports a deployment, transaction or view call that failed or
// did not reach the required confirmations.
type ExternalCallError struct {
	Step   string
	Target string
	Method string
	Err    error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("step %s: %s.%s: %v", e.Step, e.Target, e.Method, e.Err)
}

func (e *ExternalCallError) Unwrap() []error {
	return []error{ErrExternalCall, e.Err}
}
