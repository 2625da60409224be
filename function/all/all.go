// Package all assembles the registry of every built-in function.
package all

import (
	"github.com/compose/conduit/function"
	"github.com/compose/conduit/function/convert"
	"github.com/compose/conduit/function/date"
	"github.com/compose/conduit/function/filter"
	"github.com/compose/conduit/function/flatten"
	"github.com/compose/conduit/function/geo"
	"github.com/compose/conduit/function/gojajs"
	"github.com/compose/conduit/function/mapselector"
	"github.com/compose/conduit/function/omit"
	"github.com/compose/conduit/function/pick"
	"github.com/compose/conduit/function/pretty"
	"github.com/compose/conduit/function/rename"
	"github.com/compose/conduit/function/resolve"
	"github.com/compose/conduit/function/selectvalue"
	"github.com/compose/conduit/function/set"
	"github.com/compose/conduit/function/stream"
	"github.com/compose/conduit/function/text"
	"github.com/compose/conduit/function/transform"
	"github.com/compose/conduit/function/uri"
)

// Registrations returns the registrations of every built-in function.
func Registrations() []function.Registration {
	var regs []function.Registration
	for _, fn := range []func() []function.Registration{
		selectvalue.Registrations,
		mapselector.Registrations,
		transform.Registrations,
		gojajs.Registrations,
		pick.Registrations,
		omit.Registrations,
		rename.Registrations,
		filter.Registrations,
		pretty.Registrations,
		set.Registrations,
		flatten.Registrations,
		text.Registrations,
		convert.Registrations,
		date.Registrations,
		geo.Registrations,
		uri.Registrations,
		stream.Registrations,
		resolve.Registrations,
	} {
		regs = append(regs, fn()...)
	}
	return regs
}

// Registry returns a new registry holding every built-in function.
func Registry() *function.Registry {
	return function.NewRegistry(Registrations()...)
}
