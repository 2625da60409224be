// Package selectvalue replaces each record with the value a selector finds in it.
package selectvalue

import (
	"context"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/selector"
)

var (
	_ function.Function = &Selector{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "selector",
			Description: "replaces the record with the value found by a selector",
			Creator: func() function.Function {
				return &Selector{}
			},
		},
	}
}

// Selector resolves Selector against every record. Records without a value are dropped.
type Selector struct {
	Selector interface{} `json:"selector"`

	specs selector.Specs
}

func (s *Selector) Apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	if s.specs == nil {
		specs, err := selector.ParseSpecs(s.Selector)
		if err != nil {
			return nil, err
		}
		s.specs = specs
	}
	v, ok, err := s.specs.Resolve(ctx, rec, env)
	if err != nil || !ok {
		log.With("found", ok).Debugln("nothing selected")
		return nil, err
	}
	return v, nil
}
