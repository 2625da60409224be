package mapping

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/compose/conduit/function"
)

type shout struct{}

func (shout) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	return rec.(string) + "!", nil
}

var (
	errBroken = errors.New("broken")
	testEnv   = function.NewEnv(function.NewRegistry(
		function.Registration{Name: "shout", Creator: func() function.Function { return shout{} }},
		function.MockRegistration("broken", &function.Mock{Err: errBroken}),
	))
)

func attr(ref string, value interface{}, locale string) map[string]interface{} {
	a := map[string]interface{}{"attribute": map[string]interface{}{"$ref": ref}, "value": value}
	if locale != "" {
		a["locale"] = locale
	}
	return a
}

var mapTests = []struct {
	name     string
	rec      map[string]interface{}
	mapping  map[string]interface{}
	template interface{}
	locale   string
	useValue bool
	out      map[string]interface{}
}{
	{
		"attribute reference",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"custom://ref": "field"},
		nil, "", false,
		map[string]interface{}{"attributes": []interface{}{attr("custom://ref", "val", "")}},
	},
	{
		"nested key",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"nested.key": "field"},
		nil, "", false,
		map[string]interface{}{"nested": map[string]interface{}{"key": "val"}},
	},
	{
		"missing values are not assigned",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"title": "field", "other": "missing"},
		nil, "", false,
		map[string]interface{}{"title": "val"},
	},
	{
		"missing attribute keeps the reference",
		map[string]interface{}{},
		map[string]interface{}{"custom://ref": "missing"},
		nil, "", false,
		map[string]interface{}{"attributes": []interface{}{map[string]interface{}{"attribute": map[string]interface{}{"$ref": "custom://ref"}}}},
	},
	{
		"template",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"title": "field"},
		map[string]interface{}{"type": "place", "title": "old"},
		"", false,
		map[string]interface{}{"type": "place", "title": "val"},
	},
	{
		"value as template",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"copy": "field"},
		nil, "", true,
		map[string]interface{}{"field": "val", "copy": "val"},
	},
	{
		"attribute replaced in place",
		map[string]interface{}{"field": "new"},
		map[string]interface{}{"custom://a": "field"},
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "old", ""), attr("custom://b", "kept", "")}},
		"", false,
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "new", ""), attr("custom://b", "kept", "")}},
	},
	{
		"attribute locale",
		map[string]interface{}{"field": "nouveau"},
		map[string]interface{}{"custom://a": "field"},
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "new", "en"), attr("custom://a", "ancien", "fr")}},
		"fr", false,
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "new", "en"), attr("custom://a", "nouveau", "fr")}},
	},
	{
		"attribute locale appended",
		map[string]interface{}{"field": "neu"},
		map[string]interface{}{"custom://a": "field"},
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "new", "en")}},
		"de", false,
		map[string]interface{}{"attributes": []interface{}{attr("custom://a", "new", "en"), attr("custom://a", "neu", "de")}},
	},
	{
		"selectors with transforms",
		map[string]interface{}{"first": "nick", "last": "cage"},
		map[string]interface{}{
			"name":         map[string]interface{}{"path": "${first} ${last}", "transform": "shout"},
			"fallback":     []interface{}{"missing", "last"},
			"custom://tag": ".",
		},
		nil, "", false,
		map[string]interface{}{
			"name":       "nick cage!",
			"fallback":   "cage",
			"attributes": []interface{}{attr("custom://tag", map[string]interface{}{"first": "nick", "last": "cage"}, "")},
		},
	},
	{
		"colons without a scheme are plain keys",
		map[string]interface{}{"field": "val"},
		map[string]interface{}{"time:zone": "field"},
		nil, "", false,
		map[string]interface{}{"time:zone": "val"},
	},
}

func TestMap(t *testing.T) {
	for _, mt := range mapTests {
		mapping, err := ParseMapping(mt.mapping)
		if err != nil {
			t.Fatalf("[%s] unexpected ParseMapping() error, %s", mt.name, err)
		}
		out, err := Map(context.Background(), mt.rec, Options{
			Mapping:            mapping,
			Template:           mt.template,
			AttributeLocale:    mt.locale,
			UseValueAsTemplate: mt.useValue,
		}, testEnv)
		if err != nil {
			t.Fatalf("[%s] unexpected Map() error, %s", mt.name, err)
		}
		if !reflect.DeepEqual(out, mt.out) {
			t.Errorf("[%s] unexpected result, expected %v, got %v", mt.name, mt.out, out)
		}
	}
}

func TestMapLeavesTemplateAlone(t *testing.T) {
	template := map[string]interface{}{"nested": map[string]interface{}{"a": 1}}
	mapping, _ := ParseMapping(map[string]interface{}{"nested.b": "b"})
	opts := Options{Mapping: mapping, Template: template}
	if _, err := Map(context.Background(), map[string]interface{}{"b": 2}, opts, testEnv); err != nil {
		t.Fatalf("unexpected Map() error, %s", err)
	}
	if expected := map[string]interface{}{"a": 1}; !reflect.DeepEqual(template["nested"], expected) {
		t.Errorf("template was modified, expected %v, got %v", expected, template["nested"])
	}
}

func TestMapError(t *testing.T) {
	mapping, _ := ParseMapping(map[string]interface{}{
		"ok":  "a",
		"bad": map[string]interface{}{"path": "a", "transform": "broken"},
	})
	_, err := Map(context.Background(), map[string]interface{}{"a": "a"}, Options{Mapping: mapping}, testEnv)
	if !errors.Is(err, errBroken) {
		t.Errorf("unexpected error, expected %v, got %v", errBroken, err)
	}
}

func TestMapBadTemplate(t *testing.T) {
	_, err := Map(context.Background(), map[string]interface{}{}, Options{Template: "nope"}, testEnv)
	if err == nil {
		t.Error("expected error but didn't receive one")
	}
}

func TestParseMappingError(t *testing.T) {
	if _, err := ParseMapping(map[string]interface{}{"a": 42}); err == nil {
		t.Error("expected error but didn't receive one")
	}
}

var attributeTests = []struct {
	key  string
	attr bool
}{
	{"custom://ref", true},
	{"https://example.com/a", true},
	{"a.b", false},
	{"://x", false},
	{"custom://", false},
	{"a:b", false},
}

func TestIsAttribute(t *testing.T) {
	for _, at := range attributeTests {
		if got := IsAttribute(at.key); got != at.attr {
			t.Errorf("[%s] unexpected result, expected %v, got %v", at.key, at.attr, got)
		}
	}
}
