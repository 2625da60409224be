package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/compose/conduit/pipe"
)

// testFactory knows foo (emits "fu"), bar (appends "bar"), write (collects into a
// shared output), values (emits its "values" option) and closable (a sink recording
// whether it was released).
type testFactory struct {
	mu     sync.Mutex
	output []interface{}
	closed int
}

func (f *testFactory) create(l Leaf) (pipe.Unit, error) {
	switch l.Type {
	case "foo":
		return pipe.FromSlice("foo", "fu"), nil
	case "bar":
		return pipe.NewMap("bar", func(_ context.Context, rec interface{}) (interface{}, error) {
			return fmt.Sprintf("%sbar", rec), nil
		}), nil
	case "write":
		return pipe.NewSink("write", f.write), nil
	case "values":
		vals, _ := l.Options["values"].([]interface{})
		return pipe.FromSlice("values", vals...), nil
	case "closable":
		return pipe.NewSink("closable", f.write, pipe.WithClose(func() error {
			f.mu.Lock()
			f.closed++
			f.mu.Unlock()
			return nil
		})), nil
	case "nothing":
		return nil, nil
	}
	return nil, errors.New("unmapped")
}

func (f *testFactory) write(_ context.Context, rec interface{}) error {
	f.mu.Lock()
	f.output = append(f.output, rec)
	f.mu.Unlock()
	return nil
}

func (f *testFactory) sorted() []string {
	out := make([]string, len(f.output))
	for i, o := range f.output {
		out[i] = fmt.Sprint(o)
	}
	sort.Strings(out)
	return out
}

func run(t *testing.T, u pipe.Unit) {
	r, ok := u.(pipe.Runner)
	if !ok {
		t.Fatalf("composed %T is not runnable", u)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected Run() error, %s", err)
	}
}

func mustParse(t *testing.T, v interface{}) Definition {
	def, err := Parse(v)
	if err != nil {
		t.Fatalf("unexpected Parse() error, %s", err)
	}
	return def
}

var composeTests = []struct {
	name     string
	def      interface{}
	readFrom []interface{}
	expected []interface{}
}{
	{
		"basic stream composition",
		map[string]interface{}{"stream": []interface{}{"foo", "bar", "write"}},
		nil,
		[]interface{}{"fubar"},
	},
	{
		"stream with a read source",
		map[string]interface{}{"stream": []interface{}{"bar", "write"}},
		[]interface{}{"fu"},
		[]interface{}{"fubar"},
	},
	{
		"recursive stream composition",
		map[string]interface{}{"stream": []interface{}{
			map[string]interface{}{"stream": []interface{}{"foo", "bar"}},
			"write",
		}},
		nil,
		[]interface{}{"fubar"},
	},
	{
		"recursive stream with a read source",
		map[string]interface{}{"stream": []interface{}{
			map[string]interface{}{"stream": []interface{}{"bar"}},
			"write",
		}},
		[]interface{}{"fu"},
		[]interface{}{"fubar"},
	},
	{
		"combine piped into a sink",
		map[string]interface{}{"stream": []interface{}{
			map[string]interface{}{"combine": []interface{}{"foo", "foo"}},
			"write",
		}},
		nil,
		[]interface{}{"fu", "fu"},
	},
	{
		"combine of sinks with a read source",
		map[string]interface{}{"combine": []interface{}{"write", "write"}},
		[]interface{}{"fu"},
		[]interface{}{"fu", "fu"},
	},
	{
		"stream through combines",
		map[string]interface{}{"stream": []interface{}{
			map[string]interface{}{"combine": []interface{}{"foo", "foo"}},
			"bar",
			map[string]interface{}{"combine": []interface{}{"write", "write"}},
		}},
		nil,
		[]interface{}{"fubar", "fubar", "fubar", "fubar"},
	},
	{
		"sub-stream into a combine of sinks with a read source",
		map[string]interface{}{"stream": []interface{}{
			"bar",
			map[string]interface{}{"combine": []interface{}{"write", "write"}},
		}},
		[]interface{}{"fu"},
		[]interface{}{"fubar", "fubar"},
	},
	{
		"bare lists are streams",
		map[string]interface{}{"stream": []interface{}{"foo", []interface{}{"bar", "bar"}, "write"}},
		nil,
		[]interface{}{"fubarbar"},
	},
	{
		"stream ending in a sink with a read source",
		map[string]interface{}{"stream": []interface{}{"bar", "bar", "bar", "write"}},
		[]interface{}{"fu"},
		[]interface{}{"fubarbarbar"},
	},
	{
		"leaf maps",
		map[string]interface{}{"stream": []interface{}{
			map[string]interface{}{"type": "values", "options": map[string]interface{}{"values": []interface{}{"a", "b"}}},
			map[string]interface{}{"type": "write"},
		}},
		nil,
		[]interface{}{"a", "b"},
	},
}

func TestCompose(t *testing.T) {
	for _, ct := range composeTests {
		f := &testFactory{}
		opts := ComposeOptions{Factory: f.create}
		if ct.readFrom != nil {
			opts.ReadFrom = pipe.FromSlice("readFrom", ct.readFrom...)
		}
		u, err := Compose(mustParse(t, ct.def), opts)
		if err != nil {
			t.Fatalf("[%s] unexpected Compose() error, %s", ct.name, err)
		}
		run(t, u)
		if !reflect.DeepEqual(f.output, ct.expected) {
			t.Errorf("[%s] unexpected output, expected %v, got %v", ct.name, ct.expected, f.output)
		}
	}
}

func TestMixedComposition(t *testing.T) {
	f := &testFactory{}
	def := map[string]interface{}{
		"stream": []interface{}{
			map[string]interface{}{"combine": []interface{}{"foo", []interface{}{"foo", "bar"}}},
			map[string]interface{}{"combine": []interface{}{
				map[string]interface{}{"stream": []interface{}{
					map[string]interface{}{"type": "bar"},
					map[string]interface{}{"type": "write"},
				}},
				map[string]interface{}{"type": "write"},
			}},
		},
	}
	u, err := Compose(mustParse(t, def), ComposeOptions{Factory: f.create})
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	run(t, u)
	expected := []string{"fu", "fubar", "fubar", "fubarbar"}
	if got := f.sorted(); !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected output, expected %v, got %v", expected, got)
	}
}

func TestAssociativity(t *testing.T) {
	defs := []interface{}{
		[]interface{}{"foo", "bar", "bar", "write"},
		[]interface{}{"foo", []interface{}{"bar", "bar"}, "write"},
		[]interface{}{[]interface{}{"foo", "bar"}, "bar", "write"},
		[]interface{}{"foo", []interface{}{"bar", []interface{}{"bar", "write"}}},
	}
	for i, def := range defs {
		f := &testFactory{}
		u, err := Compose(mustParse(t, def), ComposeOptions{Factory: f.create})
		if err != nil {
			t.Fatalf("[%d] unexpected Compose() error, %s", i, err)
		}
		run(t, u)
		if !reflect.DeepEqual(f.output, []interface{}{"fubarbar"}) {
			t.Errorf("[%d] unexpected output, got %v", i, f.output)
		}
	}
}

func TestFanInOrder(t *testing.T) {
	f := &testFactory{}
	def := Fan{RecordMode: true, Stages: []Definition{
		Leaf{Type: "values", Options: Options{"values": []interface{}{1, 2}}},
		Leaf{Type: "values", Options: Options{"values": []interface{}{3, 4}}},
	}}
	u, err := Compose(def, ComposeOptions{Factory: f.create})
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	if u.Capability() != pipe.Source {
		t.Fatalf("unexpected capability, expected source, got %s", u.Capability())
	}
	got, err := pipe.Collect(context.Background(), u.(pipe.Producer))
	if err != nil {
		t.Fatalf("unexpected Collect() error, %s", err)
	}
	if !reflect.DeepEqual(got, []interface{}{1, 2, 3, 4}) {
		t.Errorf("unexpected records, expected [1 2 3 4], got %v", got)
	}
}

func TestFanOutDuplication(t *testing.T) {
	c1, c2 := pipe.NewCollector("c1"), pipe.NewCollector("c2")
	f := &testFactory{}
	u, err := Compose(
		Fan{RecordMode: true, Stages: []Definition{Raw{c1}, Raw{c2}}},
		ComposeOptions{Factory: f.create, ReadFrom: pipe.FromSlice("src", "x", "y")},
	)
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	if u.Capability() != pipe.Sink {
		t.Fatalf("unexpected capability, expected sink, got %s", u.Capability())
	}
	run(t, u)
	for _, c := range []*pipe.Collector{c1, c2} {
		if !reflect.DeepEqual(c.Records(), []interface{}{"x", "y"}) {
			t.Errorf("[%s] unexpected records, got %v", c.Name(), c.Records())
		}
	}
}

func TestFanBytes(t *testing.T) {
	f := &testFactory{}
	def := mustParse(t, map[string]interface{}{
		"stream": []interface{}{
			map[string]interface{}{
				"combine": []interface{}{"foo", "foo"},
				"options": map[string]interface{}{"objectMode": false},
			},
			"write",
		},
	})
	u, err := Compose(def, ComposeOptions{Factory: f.create})
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	run(t, u)
	expected := []interface{}{[]byte("fu"), []byte("fu")}
	if !reflect.DeepEqual(f.output, expected) {
		t.Errorf("unexpected output, expected %q, got %q", expected, f.output)
	}
}

func TestRawUnits(t *testing.T) {
	var value interface{}
	read := pipe.FromSlice("read", map[string]interface{}{"foo": "bar"})
	write := pipe.NewSink("write", func(_ context.Context, rec interface{}) error {
		value = rec
		return nil
	})
	f := &testFactory{}
	u, err := Compose(mustParse(t, []pipe.Unit{read, write}), ComposeOptions{Factory: f.create})
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	run(t, u)
	if !reflect.DeepEqual(value, map[string]interface{}{"foo": "bar"}) {
		t.Errorf("unexpected value, got %v", value)
	}
}

func TestOpenHeadChain(t *testing.T) {
	f := &testFactory{}
	u, err := Compose(mustParse(t, []interface{}{"bar", "bar"}), ComposeOptions{Factory: f.create})
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	if u.Capability() != pipe.Transform {
		t.Fatalf("unexpected capability, expected transform, got %s", u.Capability())
	}
	if err := u.(pipe.Consumer).Attach(pipe.FromSlice("src", "fu")); err != nil {
		t.Fatalf("unexpected Attach() error, %s", err)
	}
	got, err := pipe.Collect(context.Background(), u.(pipe.Producer))
	if err != nil {
		t.Fatalf("unexpected Collect() error, %s", err)
	}
	if !reflect.DeepEqual(got, []interface{}{"fubarbar"}) {
		t.Errorf("unexpected records, got %v", got)
	}
}

var composeErrorTests = []struct {
	name     string
	def      Definition
	readFrom pipe.Producer
	check    func(error) bool
}{
	{
		"mixed fan",
		Fan{RecordMode: true, Stages: []Definition{Leaf{Type: "foo"}, Leaf{Type: "closable"}}},
		nil,
		isDirection,
	},
	{
		"pipe into a source",
		Sequence{Stages: []Definition{Leaf{Type: "foo"}, Leaf{Type: "foo"}}},
		nil,
		isDirection,
	},
	{
		"pipe out of a sink",
		Sequence{Stages: []Definition{Leaf{Type: "closable"}, Leaf{Type: "write"}}},
		pipe.FromSlice("src"),
		isDirection,
	},
	{
		"read source into a source fan",
		Fan{RecordMode: true, Stages: []Definition{Leaf{Type: "foo"}, Leaf{Type: "foo"}}},
		pipe.FromSlice("src"),
		isDirection,
	},
	{
		"read source into a source",
		Leaf{Type: "foo"},
		pipe.FromSlice("src"),
		isDirection,
	},
	{
		"read source that is not a source",
		Leaf{Type: "closable"},
		pipe.NewChain(nil, pipe.NewCollector("sink")),
		isDirection,
	},
	{
		"unknown type",
		Sequence{Stages: []Definition{Leaf{Type: "foo"}, Leaf{Type: "unknown"}}},
		nil,
		isFactory,
	},
	{
		"factory returns nothing",
		Leaf{Type: "nothing"},
		nil,
		isFactory,
	},
	{
		"empty fan",
		Fan{},
		nil,
		isConfiguration,
	},
	{
		"empty stream",
		Sequence{},
		nil,
		isConfiguration,
	},
	{
		"empty raw",
		Raw{},
		nil,
		isConfiguration,
	},
}

func isDirection(err error) bool {
	_, ok := err.(DirectionError)
	return ok
}

func isFactory(err error) bool {
	var fe FactoryError
	return errors.As(err, &fe)
}

func isConfiguration(err error) bool {
	_, ok := err.(ConfigurationError)
	return ok
}

func TestComposeErrors(t *testing.T) {
	for _, ct := range composeErrorTests {
		f := &testFactory{}
		u, err := Compose(ct.def, ComposeOptions{Factory: f.create, ReadFrom: ct.readFrom})
		if !ct.check(err) {
			t.Errorf("[%s] unexpected error type %T (%v)", ct.name, err, err)
		}
		if u != nil {
			t.Errorf("[%s] expected no unit on failure, got %v", ct.name, u)
		}
		if len(f.output) != 0 {
			t.Errorf("[%s] records flowed before the failure, %v", ct.name, f.output)
		}
	}
}

func TestComposeReleasesOnFailure(t *testing.T) {
	f := &testFactory{}
	def := Fan{RecordMode: true, Stages: []Definition{Leaf{Type: "closable"}, Leaf{Type: "foo"}}}
	if _, err := Compose(def, ComposeOptions{Factory: f.create}); !isDirection(err) {
		t.Fatalf("expected DirectionError, got %v", err)
	}
	if f.closed != 1 {
		t.Errorf("expected closable to be released once, got %d", f.closed)
	}
}

func TestComposeReleasesOnFactoryFailure(t *testing.T) {
	f := &testFactory{}
	def := Fan{RecordMode: true, Stages: []Definition{Leaf{Type: "closable"}, Leaf{Type: "unknown"}}}
	if _, err := Compose(def, ComposeOptions{Factory: f.create}); !isFactory(err) {
		t.Fatalf("expected FactoryError, got %v", err)
	}
	if f.closed != 1 {
		t.Errorf("expected closable to be released once, got %d", f.closed)
	}
}

func TestComposeMissingFactory(t *testing.T) {
	_, err := Compose(Leaf{Type: "foo"}, ComposeOptions{})
	if !isConfiguration(err) {
		t.Errorf("expected ConfigurationError, got %T (%v)", err, err)
	}
}

func TestRuntimeErrorIsTerminal(t *testing.T) {
	f := &testFactory{}
	u, err := Compose(
		Sequence{Stages: []Definition{Raw{pipe.Failing("broken", "fu")}, Leaf{Type: "bar"}, Leaf{Type: "write"}}},
		ComposeOptions{Factory: f.create},
	)
	if err != nil {
		t.Fatalf("unexpected Compose() error, %s", err)
	}
	err = u.(pipe.Runner).Run(context.Background())
	var re RuntimeError
	if !errors.As(err, &re) || re.Path != "broken" {
		t.Errorf("unexpected error, expected RuntimeError from broken, got %v", err)
	}
	if !reflect.DeepEqual(f.output, []interface{}{"fubar"}) {
		t.Errorf("unexpected output, got %v", f.output)
	}
}
