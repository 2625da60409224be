// Package transform chains registered functions over a single value.
package transform

import (
	"context"
	"fmt"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/pipeline"
)

var (
	_ function.Function = &Transform{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "transform",
			Description: "applies a list of functions to the record one after the other",
			Creator: func() function.Function {
				return &Transform{}
			},
		},
	}
}

// Transform applies each function named in Transform to the output of the previous one.
// Unlike a stream of stages, the value is handed on even when a function returns nil.
type Transform struct {
	Transform interface{} `json:"transform"`

	chain []function.Function
}

func (t *Transform) Apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	if t.chain == nil {
		chain, err := build(t.Transform, env.Functions)
		if err != nil {
			return nil, err
		}
		t.chain = chain
	}
	v := rec
	for _, fn := range t.chain {
		out, err := fn.Apply(ctx, env, v)
		if err != nil {
			return nil, err
		}
		v = out
	}
	return v, nil
}

func build(v interface{}, reg *function.Registry) ([]function.Function, error) {
	def, err := pipeline.Parse(v)
	if err != nil {
		return nil, err
	}
	leaves, err := flatten(def)
	if err != nil {
		return nil, err
	}
	chain := make([]function.Function, len(leaves))
	for i, l := range leaves {
		fn, err := reg.Get(l.Type, l.Options)
		if err != nil {
			return nil, err
		}
		chain[i] = fn
	}
	return chain, nil
}

func flatten(def pipeline.Definition) ([]pipeline.Leaf, error) {
	switch d := def.(type) {
	case pipeline.Leaf:
		return []pipeline.Leaf{d}, nil
	case pipeline.Sequence:
		var leaves []pipeline.Leaf
		for _, stage := range d.Stages {
			l, err := flatten(stage)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, l...)
		}
		return leaves, nil
	}
	return nil, pipeline.ConfigurationError{Reason: fmt.Sprintf("transform only chains functions, got %T", def)}
}
