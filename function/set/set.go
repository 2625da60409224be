package set

import (
	"context"
	"errors"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

// ErrMissingPath is returned when no path is configured.
var ErrMissingPath = errors.New("set needs a path")

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "set",
			Description: "stores a fixed value at a path of a copy of the record",
			Creator: func() function.Function {
				return &Set{}
			},
		},
	}
}

// Set assigns Value at Path. Records that are not maps pass through unchanged.
type Set struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func (s *Set) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if s.Path == "" {
		return nil, ErrMissingPath
	}
	m, ok := record.AsMap(record.Clone(rec))
	if !ok {
		return rec, nil
	}
	record.Set(m, s.Path, record.Clone(s.Value))
	return m, nil
}
