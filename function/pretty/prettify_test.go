package pretty

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	bson "gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/function"
)

var initTests = []struct {
	name   string
	in     map[string]interface{}
	expect *Prettify
}{
	{"console", map[string]interface{}{}, &Prettify{Spaces: defaultIndent}},
	{"pretty", map[string]interface{}{"spaces": 4, "prefix": "row"}, &Prettify{Spaces: 4, Prefix: "row"}},
}

func TestInit(t *testing.T) {
	reg := function.NewRegistry(Registrations()...)
	for _, it := range initTests {
		a, err := reg.Get(it.name, it.in)
		if err != nil {
			t.Fatalf("unexpected Get() error, %s", err)
		}
		if !reflect.DeepEqual(a, it.expect) {
			t.Errorf("misconfigured Function, expected %+v, got %+v", it.expect, a)
		}
	}
}

var prettyTests = []struct {
	p    *Prettify
	data interface{}
}{
	{
		&Prettify{Spaces: defaultIndent},
		map[string]interface{}{"_id": "blah", "type": "good"},
	},
	{
		&Prettify{Spaces: defaultIndent},
		map[string]interface{}{"_id": bson.NewObjectId(), "hello": "world", "ts": bson.MongoTimestamp(time.Now().Unix() << 32)},
	},
	{
		&Prettify{Spaces: 0},
		map[string]interface{}{"_id": bson.NewObjectId(), "hello": "world", "ts": bson.MongoTimestamp(time.Now().Unix() << 32)},
	},
	{
		&Prettify{Spaces: 0},
		[]interface{}{"not", "a", "map"},
	},
}

func TestApply(t *testing.T) {
	for _, pt := range prettyTests {
		out, err := pt.p.Apply(context.Background(), function.Env{}, pt.data)
		if err != nil {
			t.Errorf("unexpected error, got %s", err)
		}
		if !reflect.DeepEqual(out, pt.data) {
			t.Errorf("wrong record, expected %+v, got %+v", pt.data, out)
		}
	}
}

func TestApplyOutput(t *testing.T) {
	var buf bytes.Buffer
	p := &Prettify{Prefix: "row", out: &buf}
	if _, err := p.Apply(context.Background(), function.Env{}, map[string]interface{}{"a": 1}); err != nil {
		t.Fatalf("unexpected Apply() error, %s", err)
	}
	if expected := "row {\"a\":1}\n"; buf.String() != expected {
		t.Errorf("unexpected output, expected %q, got %q", expected, buf.String())
	}
}
