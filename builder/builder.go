// Package builder assembles the default stage factory out of the adaptor and function
// registries and drives composed pipelines to completion.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compose/conduit/adaptor"
	adaptors "github.com/compose/conduit/adaptor/all"
	"github.com/compose/conduit/events"
	"github.com/compose/conduit/function"
	functions "github.com/compose/conduit/function/all"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/pipeline"
)

const (
	adaptorRole  = "adaptor"
	functionRole = "function"
	customRole   = "custom"
)

// ErrUnknownType is returned for leaves naming neither an adaptor nor a function.
type ErrUnknownType struct {
	Type string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown stage type %q, not an adaptor or a function", e.Type)
}

// Options configure a Builder. Nil registries default to every built-in adaptor and
// function.
type Options struct {
	Adaptors  *adaptor.Registry
	Functions *function.Registry
	// Factory is tried before the registries. Returning a nil unit and a nil error
	// falls through to them.
	Factory pipeline.Factory
	// Emitter receives the boot, metrics, error and exit events of Run.
	Emitter events.Emitter
	Version string
}

// Builder composes definitions with the stages of its registries.
type Builder struct {
	adaptors  *adaptor.Registry
	functions *function.Registry
	custom    pipeline.Factory
	emitter   events.Emitter
	version   string
	env       function.Env
	l         log.Logger
}

// New returns a Builder.
func New(opts Options) *Builder {
	b := &Builder{
		adaptors:  opts.Adaptors,
		functions: opts.Functions,
		custom:    opts.Factory,
		emitter:   opts.Emitter,
		version:   opts.Version,
		l:         log.With("component", "builder"),
	}
	if b.adaptors == nil {
		b.adaptors = adaptors.Registry()
	}
	if b.functions == nil {
		b.functions = functions.Registry()
	}
	if b.emitter == nil {
		b.emitter = events.NoopEmitter()
	}
	b.env = function.Env{
		Compose: func(def pipeline.Definition) (pipe.Unit, error) {
			return b.Compose(def, nil)
		},
		Functions: b.functions,
	}
	return b
}

// Env returns the environment handed to every function of the builder.
func (b *Builder) Env() function.Env {
	return b.env
}

// Factory creates the unit of a leaf: the custom factory first, then adaptors, then
// functions.
func (b *Builder) Factory() pipeline.Factory {
	return b.create
}

func (b *Builder) create(l pipeline.Leaf) (pipe.Unit, error) {
	if b.custom != nil {
		u, err := b.custom(l)
		if err != nil || u != nil {
			return u, err
		}
	}
	switch b.role(l.Type) {
	case adaptorRole:
		return adaptor.Factory(b.adaptors)(l)
	case functionRole:
		return function.Factory(b.env)(l)
	}
	return nil, ErrUnknownType{Type: l.Type}
}

func (b *Builder) role(typ string) string {
	switch {
	case b.adaptors.Has(typ):
		return adaptorRole
	case b.functions.Has(typ):
		return functionRole
	}
	return customRole
}

// Compose wires def, reading from readFrom when it is set.
func (b *Builder) Compose(def pipeline.Definition, readFrom pipe.Producer) (pipe.Unit, error) {
	return pipeline.Compose(def, pipeline.ComposeOptions{Factory: b.create, ReadFrom: readFrom})
}

// Run composes def and drives it to completion. The composed unit must be runnable,
// which is the case of any definition that starts with a source.
func (b *Builder) Run(ctx context.Context, def pipeline.Definition) error {
	u, err := b.Compose(def, nil)
	if err != nil {
		return err
	}
	r, ok := u.(pipe.Runner)
	if !ok {
		return pipeline.DirectionError{Reason: fmt.Sprintf("cannot run %s, it is a %s", u.Name(), u.Capability())}
	}

	endpoints := b.Endpoints(def)
	b.emitter.Emit(events.NewBootEvent(time.Now().Unix(), b.version, endpoints))
	b.l.With("unit", u.Name()).Infoln("pipeline starting...")

	err = r.Run(ctx)
	if err != nil {
		path := u.Name()
		var re pipe.RuntimeError
		if errors.As(err, &re) {
			path = re.Path
		}
		b.emitter.Emit(events.NewErrorEvent(time.Now().Unix(), path, nil, err.Error()))
	}
	if c, ok := u.(pipe.Counter); ok {
		b.emitter.Emit(events.NewMetricsEvent(time.Now().Unix(), u.Name(), c.Count()))
	}
	b.emitter.Emit(events.NewExitEvent(time.Now().Unix(), b.version, endpoints))
	b.l.With("unit", u.Name()).Infoln("pipeline finished")
	return err
}

// Endpoints names the role of every leaf type found in def.
func (b *Builder) Endpoints(def pipeline.Definition) map[string]string {
	out := map[string]string{}
	var walk func(pipeline.Definition)
	walk = func(d pipeline.Definition) {
		switch t := d.(type) {
		case pipeline.Leaf:
			out[t.Type] = b.role(t.Type)
		case pipeline.Sequence:
			for _, s := range t.Stages {
				walk(s)
			}
		case pipeline.Fan:
			for _, s := range t.Stages {
				walk(s)
			}
		}
	}
	walk(def)
	return out
}
