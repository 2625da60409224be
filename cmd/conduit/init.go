package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/compose/conduit/adaptor"
	adaptors "github.com/compose/conduit/adaptor/all"
)

func runInit(args []string) error {
	flagset := baseFlagSet("init")
	flagset.Usage = usageFor(flagset, "conduit init [source] [sink]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) != 2 {
		return fmt.Errorf("wrong number of arguments provided, expected 2, got %d", len(args))
	}
	if _, err := os.Stat(defaultPipelineFile); err == nil {
		return fmt.Errorf("%s already exists", defaultPipelineFile)
	}

	doc, err := samplePipeline(adaptors.Registry(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Writing %s...\n", defaultPipelineFile)
	return os.WriteFile(defaultPipelineFile, []byte(doc), 0644)
}

// samplePipeline streams the sample of source into the sample of sink.
func samplePipeline(reg *adaptor.Registry, source, sink string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\nstream:\n", version)
	for _, name := range []string{source, sink} {
		r, ok := reg.Lookup(name)
		if !ok {
			return "", adaptor.ErrNotFound{Name: name}
		}
		if r.SampleConfig == "" {
			return "", fmt.Errorf("adaptor '%s' did not provide a sample config", name)
		}
		b.WriteString(listItem(r.SampleConfig))
	}
	return b.String(), nil
}

// listItem turns an indented sample into an item of the stream list.
func listItem(sample string) string {
	lines := strings.Split(strings.TrimRight(sample, "\n"), "\n")
	lines[0] = "  - " + strings.TrimSpace(lines[0])
	return strings.Join(lines, "\n") + "\n"
}
