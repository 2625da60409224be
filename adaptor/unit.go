package adaptor

import (
	"context"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/pipeline"
)

// Factory creates units for every leaf naming an adaptor in reg. Leaves naming an
// unknown adaptor fail with ErrNotFound.
func Factory(reg *Registry) pipeline.Factory {
	return func(l pipeline.Leaf) (pipe.Unit, error) {
		a, err := reg.Get(l.Type, Config(l.Options))
		if err != nil {
			return nil, err
		}
		return NewUnit(l.Type, a)
	}
}

// NewUnit turns a into a pipeline unit. Readable adaptors become a Source reading
// through a single session, Writable ones a Sink writing every record through a session
// opened before the first record is pulled. Sessions and clients implementing
// client.Closer are closed once the unit is done.
func NewUnit(name string, a Adaptor) (pipe.Unit, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	l := log.With("adaptor", name)
	switch v := a.(type) {
	case Readable:
		r, err := v.Reader()
		if err != nil {
			return nil, err
		}
		return pipe.NewSource(name, func(ctx context.Context, emit func(interface{}) error) error {
			defer client.Close(c)
			l.Infoln("adaptor reading...")
			if err := client.Read(ctx, c, r, emit); err != nil {
				return err
			}
			l.Infoln("adaptor read finished...")
			return nil
		}), nil
	case Writable:
		w, err := v.Writer()
		if err != nil {
			return nil, err
		}
		var s client.Session
		return pipe.NewSink(name,
			func(ctx context.Context, rec interface{}) error {
				return w.Write(ctx, s, rec)
			},
			pipe.WithStart(func(ctx context.Context) (err error) {
				l.Infoln("adaptor writing...")
				s, err = c.Connect(ctx)
				return err
			}),
			pipe.WithFinish(func(ctx context.Context) error {
				if f, ok := w.(client.Finisher); ok {
					return f.Finish(ctx, s)
				}
				return nil
			}),
			pipe.WithClose(func() error {
				client.Close(s)
				client.Close(c)
				l.Infoln("adaptor closed...")
				return nil
			}),
		), nil
	}
	client.Close(c)
	return nil, ErrFuncNotSupported{Name: name, Func: "Reader() or Writer()"}
}
