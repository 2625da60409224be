// Package object provides a source emitting records written inline in the pipeline
// definition.
package object

import (
	"context"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
)

const (
	sampleConfig = `    type: object
    options:
      objects:
        - {name: first}
        - {name: second}`

	description = "an adaptor that emits the records listed in its options"
)

var (
	_ adaptor.Readable = &Object{}
	_ client.Reader    = &Object{}
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "object",
			Description:  description,
			SampleConfig: sampleConfig,
			Creator:      func() adaptor.Adaptor { return &Object{} },
		},
	}
}

// Object emits Objects in order, or the single Object when no list is given.
type Object struct {
	Object  interface{}   `json:"object"`
	Objects []interface{} `json:"objects"`
}

func (o *Object) Client() (client.Client, error) {
	return &client.Mock{}, nil
}

func (o *Object) Reader() (client.Reader, error) {
	return o, nil
}

func (o *Object) Read(_ context.Context, _ client.Session, emit client.EmitFunc) error {
	objects := o.Objects
	if objects == nil && o.Object != nil {
		objects = []interface{}{o.Object}
	}
	for _, obj := range objects {
		if err := emit(obj); err != nil {
			return err
		}
	}
	return nil
}
