package pipe

import (
	"context"
)

// Concat merges several producers into one Source. Member 0 is read to completion, then
// member 1, and so on; records are never interleaved. Members are opened lazily, one at
// a time.
type Concat struct {
	base
	members    []Producer
	recordMode bool
}

var (
	_ Producer = &Concat{}
	_ Runner   = &Concat{}
)

// NewConcat returns a Concat over members. With recordMode false every record is framed
// as raw bytes, see ToBytes.
func NewConcat(name string, members []Producer, recordMode bool) *Concat {
	return &Concat{base: base{name: name, cap: Source}, members: members, recordMode: recordMode}
}

// Members returns the merged producers in order.
func (c *Concat) Members() []Producer {
	return c.members
}

// Open returns the concatenated sequence.
func (c *Concat) Open(ctx context.Context) (Iterator, error) {
	if err := c.claim(); err != nil {
		return nil, wrap(c.name, err)
	}
	return &concatIter{c: c}, nil
}

// Run drains the merged output.
func (c *Concat) Run(ctx context.Context) error {
	return Drain(ctx, c)
}

type concatIter struct {
	c   *Concat
	idx int
	cur Iterator
	err error
}

func (it *concatIter) Next(ctx context.Context) (interface{}, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}
	for {
		if it.cur == nil {
			if it.idx >= len(it.c.members) {
				return nil, false, nil
			}
			m := it.c.members[it.idx]
			it.idx++
			cur, err := m.Open(ctx)
			if err != nil {
				it.err = wrap(m.Name(), err)
				return nil, false, it.err
			}
			it.cur = cur
		}
		rec, ok, err := it.cur.Next(ctx)
		if err != nil {
			it.err = wrap(it.c.name, err)
			return nil, false, it.err
		}
		if !ok {
			cerr := it.cur.Close()
			it.cur = nil
			if cerr != nil {
				it.err = wrap(it.c.name, cerr)
				return nil, false, it.err
			}
			continue
		}
		if !it.c.recordMode {
			if rec, err = ToBytes(rec); err != nil {
				it.err = wrap(it.c.name, err)
				return nil, false, it.err
			}
		}
		addCount(&it.c.count)
		return rec, true, nil
	}
}

func (it *concatIter) Close() error {
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	return err
}
