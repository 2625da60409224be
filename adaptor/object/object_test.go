package object

import (
	"context"
	"reflect"
	"testing"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/pipe"
)

var readTests = []struct {
	name     string
	config   adaptor.Config
	expected []interface{}
}{
	{
		"objects",
		adaptor.Config{"objects": []interface{}{map[string]interface{}{"a": 1}, "b"}},
		[]interface{}{map[string]interface{}{"a": float64(1)}, "b"},
	},
	{
		"single object",
		adaptor.Config{"object": map[string]interface{}{"a": "a"}},
		[]interface{}{map[string]interface{}{"a": "a"}},
	},
	{
		"nothing",
		adaptor.Config{},
		nil,
	},
}

func TestRead(t *testing.T) {
	reg := adaptor.NewRegistry(Registrations()...)
	for _, rt := range readTests {
		a, err := reg.Get("object", rt.config)
		if err != nil {
			t.Fatalf("[%s] unexpected Get() error, %s", rt.name, err)
		}
		u, err := adaptor.NewUnit("object", a)
		if err != nil {
			t.Fatalf("[%s] unexpected NewUnit() error, %s", rt.name, err)
		}
		out, err := pipe.Collect(context.Background(), u.(pipe.Producer))
		if err != nil {
			t.Fatalf("[%s] unexpected Collect() error, %s", rt.name, err)
		}
		if !reflect.DeepEqual(out, rt.expected) {
			t.Errorf("[%s] unexpected records, expected %v, got %v", rt.name, rt.expected, out)
		}
	}
}
