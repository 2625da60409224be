package pipe

import (
	"context"
	"encoding/json"
)

// Drain opens p and pulls every record out of it, discarding them.
func Drain(ctx context.Context, p Producer) error {
	return each(ctx, p, func(interface{}) error { return nil })
}

// Collect opens p and returns every record it yields.
func Collect(ctx context.Context, p Producer) ([]interface{}, error) {
	var out []interface{}
	err := each(ctx, p, func(rec interface{}) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

func each(ctx context.Context, p Producer, fn func(interface{}) error) error {
	it, err := p.Open(ctx)
	if err != nil {
		return wrap(p.Name(), err)
	}
	defer it.Close()
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return wrap(p.Name(), err)
		}
		if !ok {
			return nil
		}
		if err := fn(rec); err != nil {
			return wrap(p.Name(), err)
		}
	}
}

// ToBytes frames a record as raw bytes. Strings and byte slices are used as is,
// anything else is JSON encoded.
func ToBytes(rec interface{}) ([]byte, error) {
	switch r := rec.(type) {
	case []byte:
		return r, nil
	case string:
		return []byte(r), nil
	case nil:
		return nil, nil
	}
	return json.Marshal(rec)
}

// chanIter reads records from a channel until it is closed. err, when set by the
// writer before closing ch, becomes the terminal error.
type chanIter struct {
	name   string
	ch     chan interface{}
	err    error
	cancel context.CancelFunc
	count  *int64
}

func (it *chanIter) Next(ctx context.Context) (interface{}, bool, error) {
	select {
	case rec, ok := <-it.ch:
		if !ok {
			if it.err != nil {
				return nil, false, wrap(it.name, it.err)
			}
			return nil, false, nil
		}
		if it.count != nil {
			addCount(it.count)
		}
		return rec, true, nil
	case <-ctx.Done():
		return nil, false, wrap(it.name, ctx.Err())
	}
}

func (it *chanIter) Close() error {
	if it.cancel != nil {
		it.cancel()
	}
	for range it.ch {
	}
	return nil
}
