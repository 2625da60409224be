package pipeline

import (
	"fmt"

	"github.com/compose/conduit/pipe"
)

// ConfigurationError is returned for malformed definitions.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error, %s", e.Reason)
}

// DirectionError is returned when a definition pipes into something that cannot
// receive, reads from something that cannot produce, or combines sources and sinks.
type DirectionError = pipe.DirectionError

// RuntimeError is the terminal failure of a composed unit once records flow.
type RuntimeError = pipe.RuntimeError

// FactoryError is returned when the factory fails, or returns nothing, for a leaf.
type FactoryError struct {
	Type string
	Err  error
}

func (e FactoryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("factory created no unit for '%s'", e.Type)
	}
	return fmt.Sprintf("factory failed for '%s', %s", e.Type, e.Err)
}

// Unwrap returns the factory's own error.
func (e FactoryError) Unwrap() error {
	return e.Err
}
