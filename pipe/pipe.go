// Copyright 2014 The Transporter Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipe provides the runnable units a conduit pipeline is made of and the
// plumbing that moves records between them.
//
// Every Unit carries an explicit Capability set when it is constructed. Source-capable
// units hand out a lazy, single-use Iterator from Open. Sink-capable units are wired to
// exactly one upstream with Attach. The unit at the far end of a pipeline is driven with
// Run, which pulls records through every upstream unit until the first one is exhausted
// or something fails.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/compose/conduit/log"
)

// Capability describes which ends of a Unit are usable.
type Capability uint8

// The capability tags. Transform units act as both a Source and a Sink.
const (
	Source Capability = 1 << iota
	Sink

	Transform = Source | Sink
)

// CanSource reports whether records can be read out of a unit.
func (c Capability) CanSource() bool {
	return c&Source != 0
}

// CanSink reports whether records can be piped into a unit.
func (c Capability) CanSink() bool {
	return c&Sink != 0
}

func (c Capability) String() string {
	switch c {
	case Source:
		return "source"
	case Sink:
		return "sink"
	case Transform:
		return "transform"
	}
	return "inert"
}

// Unit is a runnable pipeline stage. Units are created once and consumed once.
type Unit interface {
	Name() string
	Capability() Capability
}

// Iterator is a finite, non-restartable sequence of records. Next returns false once the
// sequence ended; a non-nil error is terminal. Close must be called to release the
// resources backing the sequence, whether or not it was exhausted.
type Iterator interface {
	Next(ctx context.Context) (interface{}, bool, error)
	Close() error
}

// Producer is a Unit whose output can be read.
type Producer interface {
	Unit
	Open(ctx context.Context) (Iterator, error)
}

// Consumer is a Unit that reads from exactly one upstream Producer.
type Consumer interface {
	Unit
	Attach(Producer) error
	Attached() bool
}

// Runner is implemented by units that can be driven to completion on their own.
type Runner interface {
	Run(ctx context.Context) error
}

// Counter is implemented by units that track how many records went through them.
type Counter interface {
	Count() int64
}

var (
	// ErrNotAttached is returned when a unit that needs an upstream is opened or run
	// without one.
	ErrNotAttached = errors.New("no upstream attached")

	// ErrAlreadyAttached is returned when Attach is called a second time on a unit.
	ErrAlreadyAttached = errors.New("upstream already attached")

	// ErrAlreadyConsumed is returned when a unit's output is opened, or the unit is run,
	// more than once.
	ErrAlreadyConsumed = errors.New("unit already consumed")
)

// DirectionError is returned when units are wired against their capabilities.
type DirectionError struct {
	Reason string
}

func (e DirectionError) Error() string {
	return fmt.Sprintf("direction error, %s", e.Reason)
}

// RuntimeError is the terminal error of a unit once records are flowing. Path names
// the unit that failed first.
type RuntimeError struct {
	Path string
	Err  error
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

// Unwrap returns the underlying failure.
func (e RuntimeError) Unwrap() error {
	return e.Err
}

// wrap tags err with path unless some unit further upstream already claimed it.
func wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	var re RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return RuntimeError{Path: path, Err: err}
}

// checkAttach validates piping up into u.
func checkAttach(u Unit, up Producer, attached bool) error {
	switch {
	case up == nil:
		return DirectionError{Reason: fmt.Sprintf("cannot pipe nothing into %s", u.Name())}
	case !up.Capability().CanSource():
		return DirectionError{Reason: fmt.Sprintf("cannot read from %s, it is a %s", up.Name(), up.Capability())}
	case !u.Capability().CanSink():
		return DirectionError{Reason: fmt.Sprintf("cannot pipe into %s, it is a %s", u.Name(), u.Capability())}
	case attached:
		return ErrAlreadyAttached
	}
	return nil
}

// base holds what every built-in unit tracks.
type base struct {
	name     string
	cap      Capability
	count    int64
	consumed int32
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Capability() Capability {
	return b.cap
}

// Count returns the number of records that went through the unit so far.
func (b *base) Count() int64 {
	return atomic.LoadInt64(&b.count)
}

func (b *base) claim() error {
	if !atomic.CompareAndSwapInt32(&b.consumed, 0, 1) {
		return ErrAlreadyConsumed
	}
	return nil
}

func (b *base) logger() log.Logger {
	return log.With("unit", b.name)
}
