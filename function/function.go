package function

import (
	"context"

	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/pipeline"
)

// Function has a single defined function to serve the purpose of applying logic to a
// record in order to return a record. Returning a nil record drops it from the stream.
type Function interface {
	Apply(ctx context.Context, env Env, rec interface{}) (interface{}, error)
}

// Expander is implemented by functions that turn a record into zero or more records.
// When present it is used instead of Apply inside a pipeline.
type Expander interface {
	Expand(ctx context.Context, env Env, rec interface{}, emit func(interface{}) error) error
}

// Flusher is implemented by functions that hold records back until the end of the stream.
type Flusher interface {
	Flush(ctx context.Context, env Env, emit func(interface{}) error) error
}

// Env is handed to every function call. Compose builds a nested pipeline the same way
// the enclosing one was built, so selectors can run sub-pipelines on a single value.
type Env struct {
	Compose   func(pipeline.Definition) (pipe.Unit, error)
	Functions *Registry
}

// NewEnv returns an Env composing only the functions known to reg.
func NewEnv(reg *Registry) Env {
	env := Env{Functions: reg}
	env.Compose = func(def pipeline.Definition) (pipe.Unit, error) {
		return pipeline.Compose(def, pipeline.ComposeOptions{Factory: Factory(env)})
	}
	return env
}

// Factory creates a transform unit for every leaf naming a function in env.Functions.
func Factory(env Env) pipeline.Factory {
	return func(l pipeline.Leaf) (pipe.Unit, error) {
		fn, err := env.Functions.Get(l.Type, l.Options)
		if err != nil {
			return nil, err
		}
		return NewUnit(l.Type, fn, env), nil
	}
}

// NewUnit wraps fn into a transform unit.
func NewUnit(name string, fn Function, env Env) *pipe.TransformUnit {
	apply := func(ctx context.Context, rec interface{}, emit func(interface{}) error) error {
		if ex, ok := fn.(Expander); ok {
			return ex.Expand(ctx, env, rec, emit)
		}
		out, err := fn.Apply(ctx, env, rec)
		if err != nil || out == nil {
			return err
		}
		return emit(out)
	}
	var opts []pipe.TransformOption
	if fl, ok := fn.(Flusher); ok {
		opts = append(opts, pipe.WithFlush(func(ctx context.Context, emit func(interface{}) error) error {
			return fl.Flush(ctx, env, emit)
		}))
	}
	return pipe.NewTransform(name, apply, opts...)
}
