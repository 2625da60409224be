package pipe

import (
	"context"
	"sync"
	"sync/atomic"
)

func addCount(n *int64) {
	atomic.AddInt64(n, 1)
}

// ProduceFunc generates records by calling emit for each one. emit blocks until the
// record was pulled downstream and fails once the consumer went away.
type ProduceFunc func(ctx context.Context, emit func(interface{}) error) error

// SourceUnit is a Source backed by a ProduceFunc running on its own goroutine.
type SourceUnit struct {
	base
	produce ProduceFunc
}

var (
	_ Producer = &SourceUnit{}
	_ Runner   = &SourceUnit{}
)

// NewSource returns a Source that runs produce once its output is opened.
func NewSource(name string, produce ProduceFunc) *SourceUnit {
	return &SourceUnit{base: base{name: name, cap: Source}, produce: produce}
}

// FromSlice returns a Source yielding records in order.
func FromSlice(name string, records ...interface{}) *SourceUnit {
	return NewSource(name, func(ctx context.Context, emit func(interface{}) error) error {
		for _, rec := range records {
			if err := emit(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Open starts the producer. Closing the returned Iterator cancels it.
func (s *SourceUnit) Open(ctx context.Context) (Iterator, error) {
	if err := s.claim(); err != nil {
		return nil, wrap(s.name, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	it := &chanIter{name: s.name, ch: make(chan interface{}), cancel: cancel, count: &s.count}
	go func() {
		defer close(it.ch)
		it.err = s.produce(ctx, func(rec interface{}) error {
			select {
			case it.ch <- rec:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	s.logger().Debugln("source opened")
	return it, nil
}

// Run drains the source.
func (s *SourceUnit) Run(ctx context.Context) error {
	return Drain(ctx, s)
}

// TransformFunc handles a single record, calling emit for every record it produces.
type TransformFunc func(ctx context.Context, rec interface{}, emit func(interface{}) error) error

// FlushFunc is called once the upstream is exhausted.
type FlushFunc func(ctx context.Context, emit func(interface{}) error) error

// TransformUnit reads from its upstream and yields what its TransformFunc emits. It
// does no work until its output is pulled.
type TransformUnit struct {
	base
	upstream Producer
	apply    TransformFunc
	flush    FlushFunc
}

var (
	_ Producer = &TransformUnit{}
	_ Consumer = &TransformUnit{}
	_ Runner   = &TransformUnit{}
)

// TransformOption configures a TransformUnit.
type TransformOption func(*TransformUnit)

// WithFlush sets a function emitting trailing records at the end of the stream.
func WithFlush(fn FlushFunc) TransformOption {
	return func(t *TransformUnit) {
		t.flush = fn
	}
}

// NewTransform returns a Transform unit.
func NewTransform(name string, fn TransformFunc, opts ...TransformOption) *TransformUnit {
	t := &TransformUnit{base: base{name: name, cap: Transform}, apply: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewMap returns a Transform emitting at most one record per input. A nil result
// drops the record.
func NewMap(name string, fn func(context.Context, interface{}) (interface{}, error)) *TransformUnit {
	return NewTransform(name, func(ctx context.Context, rec interface{}, emit func(interface{}) error) error {
		out, err := fn(ctx, rec)
		if err != nil || out == nil {
			return err
		}
		return emit(out)
	})
}

// Attach sets the upstream.
func (t *TransformUnit) Attach(up Producer) error {
	if err := checkAttach(t, up, t.upstream != nil); err != nil {
		return err
	}
	t.upstream = up
	return nil
}

// Attached reports whether an upstream was attached.
func (t *TransformUnit) Attached() bool {
	return t.upstream != nil
}

// Open opens the upstream and returns the transformed sequence.
func (t *TransformUnit) Open(ctx context.Context) (Iterator, error) {
	if t.upstream == nil {
		return nil, wrap(t.name, ErrNotAttached)
	}
	if err := t.claim(); err != nil {
		return nil, wrap(t.name, err)
	}
	up, err := t.upstream.Open(ctx)
	if err != nil {
		return nil, wrap(t.name, err)
	}
	return &transformIter{t: t, up: up}, nil
}

// Run drains the transform's output.
func (t *TransformUnit) Run(ctx context.Context) error {
	return Drain(ctx, t)
}

type transformIter struct {
	t     *TransformUnit
	up    Iterator
	queue []interface{}
	done  bool
	err   error
}

func (it *transformIter) emit(rec interface{}) error {
	it.queue = append(it.queue, rec)
	return nil
}

func (it *transformIter) Next(ctx context.Context) (interface{}, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}
	for len(it.queue) == 0 {
		if it.done {
			return nil, false, nil
		}
		rec, ok, err := it.up.Next(ctx)
		if err != nil {
			it.err = wrap(it.t.name, err)
			return nil, false, it.err
		}
		if !ok {
			it.done = true
			if it.t.flush != nil {
				if err := it.t.flush(ctx, it.emit); err != nil {
					it.err = wrap(it.t.name, err)
					return nil, false, it.err
				}
			}
			continue
		}
		if err := it.t.apply(ctx, rec, it.emit); err != nil {
			it.err = wrap(it.t.name, err)
			return nil, false, it.err
		}
	}
	rec := it.queue[0]
	it.queue[0] = nil
	it.queue = it.queue[1:]
	addCount(&it.t.count)
	return rec, true, nil
}

func (it *transformIter) Close() error {
	return it.up.Close()
}

// WriteFunc stores a single record.
type WriteFunc func(ctx context.Context, rec interface{}) error

// SinkUnit pulls every record from its upstream into a WriteFunc.
type SinkUnit struct {
	base
	upstream Producer
	write    WriteFunc
	start    func(context.Context) error
	finish   func(context.Context) error
	close    func() error

	closeOnce sync.Once
	closeErr  error
}

var (
	_ Consumer = &SinkUnit{}
	_ Runner   = &SinkUnit{}
)

// SinkOption configures a SinkUnit.
type SinkOption func(*SinkUnit)

// WithStart sets a function called before the first record is pulled.
func WithStart(fn func(context.Context) error) SinkOption {
	return func(s *SinkUnit) {
		s.start = fn
	}
}

// WithFinish sets a function called after the upstream was exhausted without error.
func WithFinish(fn func(context.Context) error) SinkOption {
	return func(s *SinkUnit) {
		s.finish = fn
	}
}

// WithClose sets a function releasing the sink's resources. It is called exactly
// once, on success and on failure.
func WithClose(fn func() error) SinkOption {
	return func(s *SinkUnit) {
		s.close = fn
	}
}

// NewSink returns a Sink unit.
func NewSink(name string, fn WriteFunc, opts ...SinkOption) *SinkUnit {
	s := &SinkUnit{base: base{name: name, cap: Sink}, write: fn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach sets the upstream.
func (s *SinkUnit) Attach(up Producer) error {
	if err := checkAttach(s, up, s.upstream != nil); err != nil {
		return err
	}
	s.upstream = up
	return nil
}

// Attached reports whether an upstream was attached.
func (s *SinkUnit) Attached() bool {
	return s.upstream != nil
}

// Run pulls every upstream record into the sink. It returns nil once the upstream is
// exhausted and every record was written, or the first error.
func (s *SinkUnit) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil && cerr != nil {
			err = wrap(s.name, cerr)
		}
	}()
	if s.upstream == nil {
		return wrap(s.name, ErrNotAttached)
	}
	if err := s.claim(); err != nil {
		return wrap(s.name, err)
	}
	if s.start != nil {
		if err := s.start(ctx); err != nil {
			return wrap(s.name, err)
		}
	}
	it, err := s.upstream.Open(ctx)
	if err != nil {
		return wrap(s.name, err)
	}
	defer it.Close()
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return wrap(s.name, err)
		}
		if !ok {
			break
		}
		if err := s.write(ctx, rec); err != nil {
			return wrap(s.name, err)
		}
		addCount(&s.count)
	}
	if s.finish != nil {
		if err := s.finish(ctx); err != nil {
			return wrap(s.name, err)
		}
	}
	s.logger().With("records", s.Count()).Debugln("sink finished")
	return nil
}

// Close releases the sink's resources.
func (s *SinkUnit) Close() error {
	s.closeOnce.Do(func() {
		if s.close != nil {
			s.closeErr = s.close()
		}
	})
	return s.closeErr
}
