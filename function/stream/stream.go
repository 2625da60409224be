// Package stream holds functions acting on the record stream as a whole rather than on
// one record at a time.
package stream

import (
	"context"
	"errors"

	"github.com/compose/conduit/function"
)

// ErrStreamOnly is returned when a stream function is applied to a lone value.
var ErrStreamOnly = errors.New("function can only be used as a pipeline stage")

var (
	_ function.Expander = &Each{}
	_ function.Flusher  = &Concat{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{Name: "each", Description: "emits every item of list records as its own record", Creator: func() function.Function { return &Each{} }},
		{Name: "skip", Description: "drops the first n records", Creator: func() function.Function { return &Skip{} }},
		{Name: "concat", Description: "collects every record into one list emitted at the end", Creator: func() function.Function { return &Concat{} }},
	}
}

// Each splits list records into their items. Other records are dropped.
type Each struct{}

func (e *Each) Apply(context.Context, function.Env, interface{}) (interface{}, error) {
	return nil, ErrStreamOnly
}

func (e *Each) Expand(_ context.Context, _ function.Env, rec interface{}, emit func(interface{}) error) error {
	l, ok := rec.([]interface{})
	if !ok {
		return nil
	}
	for _, item := range l {
		if err := emit(item); err != nil {
			return err
		}
	}
	return nil
}

// Skip drops the first N records and passes on the rest.
type Skip struct {
	N    int `json:"skip"`
	seen int
}

func (s *Skip) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	s.seen++
	if s.seen <= s.N {
		return nil, nil
	}
	return rec, nil
}

// Concat gathers every record, flattening list records, and emits them as one list
// once the stream ends.
type Concat struct {
	all []interface{}
}

func (c *Concat) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if l, ok := rec.([]interface{}); ok {
		c.all = append(c.all, l...)
		return nil, nil
	}
	c.all = append(c.all, rec)
	return nil, nil
}

func (c *Concat) Flush(_ context.Context, _ function.Env, emit func(interface{}) error) error {
	all := c.all
	if all == nil {
		all = []interface{}{}
	}
	c.all = nil
	return emit(all)
}
