package main

import (
	"fmt"
	"io"

	"github.com/compose/conduit/builder"
	"github.com/compose/conduit/pipeline"
)

func runTest(args []string) error {
	flagset := baseFlagSet("test")
	flagset.Usage = usageFor(flagset, "conduit test [flags] <pipeline>")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) <= 0 {
		args = []string{defaultPipelineFile}
	}

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	fmt.Println(pipeline.Tree(doc.Pipeline))

	u, err := builder.New(builder.Options{}).Compose(doc.Pipeline, nil)
	if err != nil {
		return err
	}
	if c, ok := u.(io.Closer); ok {
		c.Close()
	}
	fmt.Printf("\ncompiled into %s (%s)\n", u.Name(), u.Capability())
	return nil
}
