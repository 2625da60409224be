package pipe

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// Tee merges several consumers into one Sink. Every incoming record is handed to each
// member in declared order, and the next record is only pulled once all members took
// the current one, so the slowest member sets the pace.
type Tee struct {
	base
	upstream   Producer
	members    []Runner
	feeds      []*feed
	recordMode bool
}

var (
	_ Consumer = &Tee{}
	_ Runner   = &Tee{}
)

// NewTee attaches a private feed to each member and returns the merged Sink. Members
// must be runnable on their own since the Tee drives them.
func NewTee(name string, members []Consumer, recordMode bool) (*Tee, error) {
	t := &Tee{base: base{name: name, cap: Sink}, recordMode: recordMode}
	for i, m := range members {
		r, ok := m.(Runner)
		if !ok {
			return nil, DirectionError{Reason: fmt.Sprintf("%s cannot be driven by %s", m.Name(), name)}
		}
		f := &feed{
			name: fmt.Sprintf("%s[%d]", name, i),
			ch:   make(chan interface{}),
			done: make(chan struct{}),
		}
		if err := m.Attach(f); err != nil {
			return nil, err
		}
		t.members = append(t.members, r)
		t.feeds = append(t.feeds, f)
	}
	return t, nil
}

// Attach sets the upstream.
func (t *Tee) Attach(up Producer) error {
	if err := checkAttach(t, up, t.upstream != nil); err != nil {
		return err
	}
	t.upstream = up
	return nil
}

// Attached reports whether an upstream was attached.
func (t *Tee) Attached() bool {
	return t.upstream != nil
}

// Run drives every member and duplicates the upstream into them. The first member or
// upstream failure cancels the rest and is returned.
func (t *Tee) Run(ctx context.Context) error {
	if t.upstream == nil {
		return wrap(t.name, ErrNotAttached)
	}
	if err := t.claim(); err != nil {
		return wrap(t.name, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range t.members {
		f, m := t.feeds[i], m
		g.Go(func() error {
			defer close(f.done)
			return m.Run(gctx)
		})
	}
	g.Go(func() error {
		err := t.pump(gctx)
		for _, f := range t.feeds {
			f.err = err
			close(f.ch)
		}
		return err
	})
	err := g.Wait()
	t.logger().With("records", t.Count()).Debugln("fan-out finished")
	return err
}

func (t *Tee) pump(ctx context.Context) error {
	it, err := t.upstream.Open(ctx)
	if err != nil {
		return wrap(t.name, err)
	}
	defer it.Close()
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return wrap(t.name, err)
		}
		if !ok {
			return nil
		}
		if !t.recordMode {
			if rec, err = ToBytes(rec); err != nil {
				return wrap(t.name, err)
			}
		}
		for _, f := range t.feeds {
			select {
			case f.ch <- rec:
			case <-f.done:
			case <-ctx.Done():
				return wrap(t.name, ctx.Err())
			}
		}
		addCount(&t.count)
	}
}

// Close closes members holding resources.
func (t *Tee) Close() error {
	var err error
	for _, m := range t.members {
		if cl, ok := m.(io.Closer); ok {
			if cerr := cl.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}

// feed is the Source a Tee member reads from. err is set before ch is closed when
// the upstream failed, so members never see a clean end of stream.
type feed struct {
	name string
	ch   chan interface{}
	done chan struct{}
	err  error
	used bool
}

func (f *feed) Name() string {
	return f.name
}

func (f *feed) Capability() Capability {
	return Source
}

func (f *feed) Open(ctx context.Context) (Iterator, error) {
	if f.used {
		return nil, ErrAlreadyConsumed
	}
	f.used = true
	return f, nil
}

func (f *feed) Next(ctx context.Context) (interface{}, bool, error) {
	select {
	case rec, ok := <-f.ch:
		if !ok && f.err != nil {
			return nil, false, f.err
		}
		return rec, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (f *feed) Close() error {
	return nil
}
