package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/compose/conduit/adaptor"
	adaptors "github.com/compose/conduit/adaptor/all"
	"github.com/compose/conduit/function"
	functions "github.com/compose/conduit/function/all"
)

func runAbout(args []string) error {
	flagset := baseFlagSet("about")
	flagset.Usage = usageFor(flagset, "conduit about [adaptor|function]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	var name string
	if args = flagset.Args(); len(args) > 0 {
		name = args[0]
	}
	return writeAbout(os.Stdout, adaptors.Registry(), functions.Registry(), name)
}

// writeAbout lists every stage type, or describes the one called name.
func writeAbout(w io.Writer, areg *adaptor.Registry, freg *function.Registry, name string) error {
	if name != "" {
		if reg, ok := areg.Lookup(name); ok {
			fmt.Fprintf(w, "%s (%s) - %s\n\n", reg.Name, adaptorRole(areg, reg.Name), reg.Description)
			if reg.SampleConfig != "" {
				fmt.Fprintf(w, "sample:\n%s\n", reg.SampleConfig)
			}
			return nil
		}
		for _, reg := range freg.Registrations() {
			if reg.Name == name {
				fmt.Fprintf(w, "%s (function) - %s\n", reg.Name, reg.Description)
				return nil
			}
		}
		return fmt.Errorf("no adaptor or function named '%s' exists", name)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"name", "role", "description"})
	for _, reg := range areg.Registrations() {
		table.Append([]string{reg.Name, adaptorRole(areg, reg.Name), reg.Description})
	}
	for _, reg := range freg.Registrations() {
		table.Append([]string{reg.Name, "function", reg.Description})
	}
	table.Render()
	return nil
}

func adaptorRole(reg *adaptor.Registry, name string) string {
	a, err := reg.Get(name, adaptor.Config{})
	if err != nil {
		return "adaptor"
	}
	switch a.(type) {
	case adaptor.Readable:
		return "source"
	case adaptor.Writable:
		return "sink"
	}
	return "adaptor"
}
