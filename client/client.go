package client

import (
	"context"
)

// EmitFunc hands a record read from the underlying source downstream. It blocks until
// the record was consumed and fails once nobody is listening anymore.
type EmitFunc func(interface{}) error

// Client provides a standard interface for interacting with the underlying sources/sinks.
type Client interface {
	Connect(ctx context.Context) (Session, error)
}

// Session represents the connection to the underlying service.
type Session interface {
}

// Closer provides a standard interface for closing a client or session
type Closer interface {
	Close()
}

// Reader represents the ability to send records down the pipe and is only needed for
// adaptors acting as a source.
type Reader interface {
	Read(ctx context.Context, s Session, emit EmitFunc) error
}

// Writer stores a single record through a Session.
type Writer interface {
	Write(ctx context.Context, s Session, rec interface{}) error
}

// Finisher is implemented by writers buffering records; Finish is called once the
// upstream is exhausted.
type Finisher interface {
	Finish(ctx context.Context, s Session) error
}

// Read connects with client and reads every record through reader. The session is
// closed once the read returns.
func Read(ctx context.Context, client Client, reader Reader, emit EmitFunc) error {
	return sessionFunc(ctx, client, func(s Session) error {
		return reader.Read(ctx, s, emit)
	})
}

// Write connects with client and stores a single record through writer.
func Write(ctx context.Context, client Client, writer Writer, rec interface{}) error {
	return sessionFunc(ctx, client, func(s Session) error {
		return writer.Write(ctx, s, rec)
	})
}

func sessionFunc(ctx context.Context, client Client, op func(Session) error) error {
	sess, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	if s, ok := sess.(Closer); ok {
		defer s.Close()
	}
	return op(sess)
}

// Close closes v when it implements Closer.
func Close(v interface{}) {
	if c, ok := v.(Closer); ok {
		c.Close()
	}
}
