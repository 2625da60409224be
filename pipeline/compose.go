package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/compose/conduit/log"
	"github.com/compose/conduit/pipe"
)

// Factory creates the unit for a leaf definition. It defines the stage types a pipeline
// can use; the composer itself knows none.
type Factory func(Leaf) (pipe.Unit, error)

// ComposeOptions are the collaborators of a Compose call.
type ComposeOptions struct {
	Factory Factory
	// ReadFrom, when set, is piped into the composed definition.
	ReadFrom pipe.Producer
}

// Compose wires def into a single unit.
//
// A Sequence returns its sink when it ends in one, otherwise its open output end. A Fan
// of producers becomes one Source reading each member to completion in declared order,
// and a Fan of open sinks becomes one Sink duplicating every record into each member.
// Shape, direction and factory failures are reported before any record flows, and the
// units created by the failed call are closed.
func Compose(def Definition, opts ComposeOptions) (pipe.Unit, error) {
	if opts.Factory == nil {
		return nil, ConfigurationError{Reason: "missing required factory for creating stages"}
	}
	if opts.ReadFrom != nil && !opts.ReadFrom.Capability().CanSource() {
		return nil, DirectionError{Reason: fmt.Sprintf("cannot read from %s, it is a %s", opts.ReadFrom.Name(), opts.ReadFrom.Capability())}
	}
	c := &composer{factory: opts.Factory, l: log.With("component", "composer")}
	u, err := c.compose(def, opts.ReadFrom)
	if err != nil {
		c.release()
		return nil, err
	}
	return u, nil
}

type composer struct {
	factory Factory
	created []pipe.Unit
	l       log.Logger
}

func (c *composer) compose(def Definition, readFrom pipe.Producer) (pipe.Unit, error) {
	switch d := def.(type) {
	case Leaf:
		u, err := c.factory(d)
		if err != nil {
			return nil, FactoryError{Type: d.Type, Err: err}
		}
		if u == nil {
			return nil, FactoryError{Type: d.Type}
		}
		c.created = append(c.created, u)
		c.l.With("type", d.Type).With("capability", u.Capability()).Debugln("stage created")
		return feed(u, readFrom)
	case Raw:
		if d.Unit == nil {
			return nil, ConfigurationError{Reason: "raw definition without a unit"}
		}
		return feed(d.Unit, readFrom)
	case Sequence:
		return c.sequence(d, readFrom)
	case Fan:
		return c.fan(d, readFrom)
	}
	return nil, ConfigurationError{Reason: fmt.Sprintf("missing either a stream, combine or type, got %T", def)}
}

// feed pipes readFrom into u when there is one.
func feed(u pipe.Unit, readFrom pipe.Producer) (pipe.Unit, error) {
	if readFrom == nil {
		return u, nil
	}
	cons, ok := u.(pipe.Consumer)
	if !ok || !u.Capability().CanSink() {
		return nil, DirectionError{Reason: fmt.Sprintf("cannot pipe into %s, it is a %s", u.Name(), u.Capability())}
	}
	if err := cons.Attach(readFrom); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *composer) sequence(d Sequence, readFrom pipe.Producer) (pipe.Unit, error) {
	if len(d.Stages) == 0 {
		return nil, ConfigurationError{Reason: "stream needs at least one stage"}
	}
	var head, tail pipe.Unit
	for i, stage := range d.Stages {
		from := readFrom
		if i > 0 {
			p, ok := tail.(pipe.Producer)
			if !ok || !tail.Capability().CanSource() {
				return nil, DirectionError{Reason: fmt.Sprintf("cannot pipe from %s, it is a %s", tail.Name(), tail.Capability())}
			}
			from = p
		}
		u, err := c.compose(stage, from)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			head = u
		}
		tail = u
	}
	if head.Capability() == pipe.Sink || head == tail {
		return head, nil
	}
	if h, ok := head.(pipe.Consumer); ok && head.Capability().CanSink() && !h.Attached() {
		return pipe.NewChain(h, tail), nil
	}
	return tail, nil
}

func (c *composer) fan(d Fan, readFrom pipe.Producer) (pipe.Unit, error) {
	if len(d.Stages) == 0 {
		return nil, ConfigurationError{Reason: "combine needs at least one stage"}
	}
	var (
		producers []pipe.Producer
		consumers []pipe.Consumer
		names     []string
	)
	for _, stage := range d.Stages {
		u, err := c.compose(stage, nil)
		if err != nil {
			return nil, err
		}
		names = append(names, u.Name())
		switch {
		case isOpenSink(u):
			consumers = append(consumers, u.(pipe.Consumer))
		case u.Capability().CanSource():
			p, ok := u.(pipe.Producer)
			if !ok {
				return nil, DirectionError{Reason: fmt.Sprintf("cannot read from %s", u.Name())}
			}
			producers = append(producers, p)
		default:
			return nil, DirectionError{Reason: fmt.Sprintf("%s is neither readable nor waiting for input", u.Name())}
		}
	}
	name := "combine(" + strings.Join(names, ",") + ")"

	switch {
	case len(consumers) == 0:
		if readFrom != nil {
			return nil, DirectionError{Reason: fmt.Sprintf("cannot pipe into %s, it combines sources", name)}
		}
		return pipe.NewConcat(name, producers, d.RecordMode), nil
	case len(producers) == 0:
		tee, err := pipe.NewTee(name, consumers, d.RecordMode)
		if err != nil {
			return nil, err
		}
		return feed(tee, readFrom)
	}
	return nil, DirectionError{Reason: fmt.Sprintf("%s mixes sources and sinks", name)}
}

// isOpenSink reports whether u is still waiting for an upstream.
func isOpenSink(u pipe.Unit) bool {
	cons, ok := u.(pipe.Consumer)
	return ok && u.Capability().CanSink() && !cons.Attached()
}

func (c *composer) release() {
	for _, u := range c.created {
		if cl, ok := u.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				c.l.With("unit", u.Name()).Errorf("unable to release stage, %s", err)
			}
		}
	}
}
