// Package mapselector builds a new record per input record out of named selectors.
package mapselector

import (
	"context"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/mapping"
	"github.com/compose/conduit/selector"
)

var (
	_ function.Function = &MapSelector{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "map-selector",
			Description: "assembles a new record from a mapping of keys to selectors",
			Creator: func() function.Function {
				return &MapSelector{}
			},
		},
	}
}

// MapSelector holds the loose options of a mapping.Map call.
type MapSelector struct {
	Mapping            map[string]interface{} `json:"mapping"`
	Template           interface{}            `json:"template"`
	AttributeLocale    string                 `json:"attributeLocale"`
	UseValueAsTemplate bool                   `json:"useValueAsTemplate"`

	parsed map[string]selector.Specs
}

func (m *MapSelector) Apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	if m.parsed == nil {
		parsed, err := mapping.ParseMapping(m.Mapping)
		if err != nil {
			return nil, err
		}
		m.parsed = parsed
	}
	return mapping.Map(ctx, rec, mapping.Options{
		Mapping:            m.parsed,
		Template:           m.Template,
		AttributeLocale:    m.AttributeLocale,
		UseValueAsTemplate: m.UseValueAsTemplate,
	}, env)
}
