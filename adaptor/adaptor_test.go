package adaptor_test

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/pipeline"
)

var (
	reader = &adaptor.MockReader{}
	writer = &adaptor.MockWriter{}

	testRegistry = adaptor.NewRegistry(
		adaptor.Registration{Name: "mock-read", Creator: func() adaptor.Adaptor { return reader }},
		adaptor.Registration{Name: "mock-write", Creator: func() adaptor.Adaptor { return writer }},
		adaptor.Registration{Name: "unsupported", Creator: func() adaptor.Adaptor { return &adaptor.UnsupportedMock{} }},
	)
)

func TestGet(t *testing.T) {
	a, err := testRegistry.Get("mock-read", adaptor.Config{"uri": "uri", "count": 3})
	if err != nil {
		t.Fatalf("unexpected Get() error, %s", err)
	}
	if m := a.(*adaptor.MockReader); m.URI != "uri" || m.RecordCount != 3 {
		t.Errorf("unexpected config, got %+v", m)
	}

	_, err = testRegistry.Get("notfound", adaptor.Config{})
	aerr := adaptor.ErrNotFound{Name: "notfound"}
	if !reflect.DeepEqual(err, aerr) {
		t.Errorf("err mismatch, expected %+v, got %+v", aerr, err)
	}

	_, err = testRegistry.Get("mock-read", adaptor.Config{"count": "three"})
	var cerr adaptor.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ConfigError, got %T (%v)", err, err)
	}
}

func TestRegistryNames(t *testing.T) {
	expected := []string{"mock-read", "mock-write", "unsupported"}
	if names := testRegistry.Names(); !reflect.DeepEqual(names, expected) {
		t.Errorf("wrong names, expected %v, got %v", expected, names)
	}
	extended := testRegistry.With(adaptor.Registration{Name: "other", Creator: func() adaptor.Adaptor { return writer }})
	if testRegistry.Has("other") || !extended.Has("other") {
		t.Error("With() should return a new registry and leave the receiver alone")
	}
}

func TestFactory(t *testing.T) {
	u, err := pipeline.Compose(
		pipeline.Sequence{Stages: []pipeline.Definition{
			pipeline.Leaf{Type: "mock-read", Options: pipeline.Options{"count": 5}},
			pipeline.Leaf{Type: "mock-write"},
		}},
		pipeline.ComposeOptions{Factory: adaptor.Factory(testRegistry)},
	)
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	if u.Capability() != pipe.Sink {
		t.Errorf("unexpected capability, expected %s, got %s", pipe.Sink, u.Capability())
	}
	if err := u.(pipe.Runner).Run(context.Background()); err != nil {
		t.Fatalf("unexpected Run() error, %s", err)
	}
	if writer.Out.RecordCount() != 5 {
		t.Errorf("unexpected record count, expected %d, got %d", 5, writer.Out.RecordCount())
	}
	if reader.Conn.Open() != 0 {
		t.Errorf("unexpected open sessions, expected 0, got %d", reader.Conn.Open())
	}
	if writer.Conn.Sessions != 1 || writer.Conn.Open() != 0 {
		t.Errorf("unexpected writer sessions, expected 1 opened and closed, got %d/%d", writer.Conn.Sessions, writer.Conn.Open())
	}
}

func TestUnsupported(t *testing.T) {
	_, err := pipeline.Compose(pipeline.Leaf{Type: "unsupported"}, pipeline.ComposeOptions{Factory: adaptor.Factory(testRegistry)})
	var uerr adaptor.ErrFuncNotSupported
	if !errors.As(err, &uerr) {
		t.Errorf("expected ErrFuncNotSupported, got %T (%v)", err, err)
	}
}

var configTests = []struct {
	cfg      adaptor.Config
	key      string
	expected string
}{
	{adaptor.Config{"hello": "world"}, "hello", "world"},
	{adaptor.Config{"hello": "world"}, "goodbye", ""},
	{adaptor.Config{"key": 1}, "key", ""},
}

func TestConfig(t *testing.T) {
	for _, ct := range configTests {
		val := ct.cfg.GetString(ct.key)
		if !reflect.DeepEqual(val, ct.expected) {
			t.Errorf("wrong string returned for %s, expected %s, got %s", ct.key, ct.expected, val)
		}
	}
}

var compileNamespaceTests = []struct {
	name    string
	cfg     adaptor.Config
	partOne string
	r       *regexp.Regexp
	err     error
}{
	{
		"simple ns",
		adaptor.Config{"namespace": "a.b"},
		"a",
		regexp.MustCompile("b"),
		nil,
	},
	{
		"simple regexp ns",
		adaptor.Config{"namespace": "a..*"},
		"a",
		regexp.MustCompile(".*"),
		nil,
	},
	{
		"simple regexp ns with /",
		adaptor.Config{"namespace": "a./.*/"},
		"a",
		regexp.MustCompile(".*"),
		nil,
	},
	{
		"malformed regexp",
		adaptor.Config{"namespace": "a"},
		"",
		nil,
		adaptor.ErrNamespaceMalformed,
	},
}

func TestCompileNamespace(t *testing.T) {
	for _, ct := range compileNamespaceTests {
		out, r, err := adaptor.CompileNamespace(ct.cfg.GetString("namespace"))
		if !reflect.DeepEqual(out, ct.partOne) {
			t.Errorf("[%s] wrong value returned, expected %s, got %s", ct.name, ct.partOne, out)
		}
		if !reflect.DeepEqual(r, ct.r) {
			t.Errorf("[%s] wrong regexp returned, expected %+v, got %+v", ct.name, ct.r, r)
		}
		if err != ct.err {
			t.Errorf("[%s] wrong error returned, expected %+v, got %+v", ct.name, ct.err, err)
		}
	}
}
