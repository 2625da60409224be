package convert

import (
	"context"
	"reflect"
	"testing"

	"github.com/compose/conduit/function"
)

var testRegistry = function.NewRegistry(Registrations()...)

var applyTests = []struct {
	name string
	fn   string
	conf map[string]interface{}
	in   interface{}
	out  interface{}
}{
	{"number from string", "to-number", nil, " 12.5 ", 12.5},
	{"number from int", "number", nil, 3, float64(3)},
	{"number from bool", "to-number", nil, true, float64(1)},
	{"number from empty string", "to-number", nil, "", float64(0)},
	{"number from garbage", "to-number", nil, "twelve", nil},
	{"number from map", "to-number", nil, map[string]interface{}{}, nil},
	{"boolean yes", "to-boolean", nil, "Yes", true},
	{"boolean 0", "boolean", nil, "0", false},
	{"boolean number", "boolean", nil, float64(1), true},
	{"boolean inverse", "boolean", map[string]interface{}{"inverse": true}, "true", false},
	{"boolean unknown", "boolean", nil, "maybe", nil},
	{"boolean default", "boolean", map[string]interface{}{"default": false}, "maybe", false},
	{"boolean number 2", "boolean", nil, float64(2), nil},
	{"json parse", "json-parse", nil, `{"a":[1,2]}`, map[string]interface{}{"a": []interface{}{float64(1), float64(2)}}},
	{"json parse bytes", "json-parse", nil, []byte(`"s"`), "s"},
	{"json parse passes values", "json-parse", nil, float64(1), float64(1)},
	{"json parse undefined on error", "json-parse", map[string]interface{}{"useUndefinedOnError": true}, `{`, nil},
	{"json stringify", "json-stringify", nil, map[string]interface{}{"a": 1}, `{"a":1}`},
	{"json stringify indent", "json-stringify", map[string]interface{}{"spaces": 2}, map[string]interface{}{"a": 1}, "{\n  \"a\": 1\n}"},
}

func TestApply(t *testing.T) {
	for _, at := range applyTests {
		fn, err := testRegistry.Get(at.fn, at.conf)
		if err != nil {
			t.Fatalf("[%s] unexpected Get() error, %s", at.name, err)
		}
		out, err := fn.Apply(context.Background(), function.Env{}, at.in)
		if err != nil {
			t.Errorf("[%s] unexpected Apply() error, %s", at.name, err)
		}
		if !reflect.DeepEqual(out, at.out) {
			t.Errorf("[%s] wrong value, expected %#v, got %#v", at.name, at.out, out)
		}
	}
}

func TestJSONParseError(t *testing.T) {
	if _, err := (&JSONParse{}).Apply(context.Background(), function.Env{}, "{"); err == nil {
		t.Error("expected error but didn't receive one")
	}
}
