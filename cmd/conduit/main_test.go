package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/compose/conduit/adaptor"
	adaptors "github.com/compose/conduit/adaptor/all"
	"github.com/compose/conduit/builder"
	functions "github.com/compose/conduit/function/all"
	"github.com/compose/conduit/pipeline"
)

var sampleTests = []struct {
	source, sink string
}{
	{"object", "file-write"},
	{"file-read", "sql-write"},
	{"mongodb-read", "elasticsearch-write"},
	{"rabbitmq-read", "sync-collection"},
}

func TestSamplePipeline(t *testing.T) {
	reg := adaptors.Registry()
	for _, st := range sampleTests {
		doc, err := samplePipeline(reg, st.source, st.sink)
		if err != nil {
			t.Fatalf("[%s] unexpected samplePipeline() error, %s", st.source, err)
		}
		parsed, err := pipeline.ParseDocument([]byte(doc))
		if err != nil {
			t.Fatalf("[%s] unexpected ParseDocument() error, %s\n%s", st.source, err, doc)
		}
		seq, ok := parsed.Pipeline.(pipeline.Sequence)
		if !ok || len(seq.Stages) != 2 {
			t.Fatalf("[%s] unexpected pipeline, got %+v", st.source, parsed.Pipeline)
		}
		for i, expected := range []string{st.source, st.sink} {
			if leaf, ok := seq.Stages[i].(pipeline.Leaf); !ok || leaf.Type != expected {
				t.Errorf("[%s] unexpected stage %d, expected %s, got %+v", st.source, i, expected, seq.Stages[i])
			}
		}
	}
}

func TestSamplePipelineComposes(t *testing.T) {
	doc, err := samplePipeline(adaptors.Registry(), "object", "file-write")
	if err != nil {
		t.Fatalf("unexpected samplePipeline() error, %s", err)
	}
	parsed, err := pipeline.ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected ParseDocument() error, %s", err)
	}
	u, err := builder.New(builder.Options{}).Compose(parsed.Pipeline, nil)
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	if u.Name() != "file-write" {
		t.Errorf("unexpected unit, expected file-write, got %s", u.Name())
	}
}

func TestSamplePipelineUnknown(t *testing.T) {
	_, err := samplePipeline(adaptors.Registry(), "object", "nope")
	if _, ok := err.(adaptor.ErrNotFound); !ok {
		t.Errorf("expected ErrNotFound, got %T (%v)", err, err)
	}
}

func TestAbout(t *testing.T) {
	var buf bytes.Buffer
	if err := writeAbout(&buf, adaptors.Registry(), functions.Registry(), ""); err != nil {
		t.Fatalf("unexpected writeAbout() error, %s", err)
	}
	for _, name := range []string{"object", "sync-collection", "map-selector", "js"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("expected %s to be listed", name)
		}
	}
}

var aboutTests = []struct {
	name     string
	contains string
}{
	{"object", "object (source)"},
	{"file-write", "file-write (sink)"},
	{"uppercase", "uppercase (function)"},
}

func TestAboutOne(t *testing.T) {
	for _, at := range aboutTests {
		var buf bytes.Buffer
		if err := writeAbout(&buf, adaptors.Registry(), functions.Registry(), at.name); err != nil {
			t.Fatalf("[%s] unexpected writeAbout() error, %s", at.name, err)
		}
		if !strings.Contains(buf.String(), at.contains) {
			t.Errorf("[%s] expected output to contain %q, got %q", at.name, at.contains, buf.String())
		}
	}
	if err := writeAbout(&bytes.Buffer{}, adaptors.Registry(), functions.Registry(), "nope"); err == nil {
		t.Error("expected error but didn't receive one")
	}
}
