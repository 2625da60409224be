package main

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/oklog/run"

	"github.com/compose/conduit/builder"
	"github.com/compose/conduit/events"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/pipeline"
)

func runRun(args []string) error {
	flagset := baseFlagSet("run")
	eventsURI := flagset.String("events.uri", "", "post pipeline events to this URI instead of logging them")
	flagset.Usage = usageFor(flagset, "conduit run [flags] <pipeline>")
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

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	l := log.With("run", id.String())

	emitter := events.LogEmitter()
	if *eventsURI != "" {
		emitter = events.HTTPPostEmitter(events.API{URI: *eventsURI})
	}
	defer emitter.Close()

	b := builder.New(builder.Options{Emitter: emitter, Version: version})

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			l.With("file", args[0]).Infoln("pipeline loaded")
			return b.Run(ctx, doc.Pipeline)
		}, func(error) {
			cancel()
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			return interrupt(cancel)
		}, func(error) {
			close(cancel)
		})
	}
	return g.Run()
}

func loadDocument(file string) (*pipeline.Document, error) {
	ba, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return pipeline.ParseDocument(ba)
}

func interrupt(cancel <-chan struct{}) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-cancel:
		return errors.New("canceled")
	}
}
