package pipe

import (
	"context"
	"fmt"
	"io"
)

// Chain is a sequence of already wired units seen from the outside: records are fed
// into its head and read out of its tail.
type Chain struct {
	head Consumer
	tail Unit
}

var (
	_ Producer = &Chain{}
	_ Consumer = &Chain{}
	_ Runner   = &Chain{}
)

// NewChain returns a Chain. head may be nil when the first unit of the sequence is not
// waiting for input.
func NewChain(head Consumer, tail Unit) *Chain {
	return &Chain{head: head, tail: tail}
}

// Head returns the unit new upstream data is fed into.
func (c *Chain) Head() Consumer {
	return c.head
}

// Tail returns the unit downstream reads from.
func (c *Chain) Tail() Unit {
	return c.tail
}

// Name returns the name of the tail.
func (c *Chain) Name() string {
	return c.tail.Name()
}

// Capability is the tail's output plus the head's input while it is still open.
func (c *Chain) Capability() Capability {
	out := c.tail.Capability() & Source
	if c.head != nil && !c.head.Attached() {
		out |= Sink
	}
	return out
}

// Attach feeds up into the head of the chain.
func (c *Chain) Attach(up Producer) error {
	if c.head == nil {
		return DirectionError{Reason: fmt.Sprintf("cannot pipe into %s, it is a %s", c.Name(), c.Capability())}
	}
	return c.head.Attach(up)
}

// Attached reports whether the head has an upstream.
func (c *Chain) Attached() bool {
	return c.head == nil || c.head.Attached()
}

// Open opens the tail.
func (c *Chain) Open(ctx context.Context) (Iterator, error) {
	p, ok := c.tail.(Producer)
	if !ok || !c.tail.Capability().CanSource() {
		return nil, DirectionError{Reason: fmt.Sprintf("cannot read from %s, it is a %s", c.Name(), c.tail.Capability())}
	}
	return p.Open(ctx)
}

// Run drives the tail.
func (c *Chain) Run(ctx context.Context) error {
	r, ok := c.tail.(Runner)
	if !ok {
		return wrap(c.Name(), fmt.Errorf("%T cannot be run", c.tail))
	}
	return r.Run(ctx)
}

// Close closes both ends when they hold resources.
func (c *Chain) Close() error {
	var err error
	for _, u := range []Unit{c.head, c.tail} {
		if cl, ok := u.(io.Closer); ok {
			if cerr := cl.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}
