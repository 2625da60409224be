// Package all assembles the registry of every built-in adaptor.
package all

import (
	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/adaptor/collection"
	"github.com/compose/conduit/adaptor/elasticsearch"
	"github.com/compose/conduit/adaptor/fetch"
	"github.com/compose/conduit/adaptor/file"
	"github.com/compose/conduit/adaptor/mongodb"
	"github.com/compose/conduit/adaptor/object"
	"github.com/compose/conduit/adaptor/rabbitmq"
	"github.com/compose/conduit/adaptor/s3"
	"github.com/compose/conduit/adaptor/sqldb"
)

// Registrations returns the registrations of every built-in adaptor.
func Registrations() []adaptor.Registration {
	var regs []adaptor.Registration
	for _, fn := range []func() []adaptor.Registration{
		object.Registrations,
		file.Registrations,
		fetch.Registrations,
		s3.Registrations,
		sqldb.Registrations,
		mongodb.Registrations,
		rabbitmq.Registrations,
		elasticsearch.Registrations,
		collection.Registrations,
	} {
		regs = append(regs, fn()...)
	}
	return regs
}

// Registry returns a new registry holding every built-in adaptor.
func Registry() *adaptor.Registry {
	return adaptor.NewRegistry(Registrations()...)
}
