// Package selector resolves values out of records.
//
// A selector names one path or an ordered list of fallback paths. A path is either "."
// for the whole record, a dotted path such as `a.b[0]` (a key present verbatim wins), or
// a template such as `${first} ${last}` whose tokens are resolved and interpolated. A
// selector may carry a transform definition: the selected value is then run through a
// one-shot pipeline composed from that definition and the last output becomes the value.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/pipeline"
	"github.com/compose/conduit/record"
)

// Identity selects the whole record.
const Identity = "."

var templatePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Spec is a single selector: fallback paths tried in order and an optional transform.
type Spec struct {
	Paths     []string
	Transform pipeline.Definition
}

// Specs are tried in order, the first one resolving to a value wins.
type Specs []Spec

// Resolve evaluates spec against rec. found is false when no path yields a value.
func Resolve(ctx context.Context, rec interface{}, spec Spec, env function.Env) (interface{}, bool, error) {
	paths := spec.Paths
	if len(paths) == 0 {
		paths = []string{Identity}
	}
	for _, path := range paths {
		v, ok := lookup(rec, path)
		if !ok {
			continue
		}
		if spec.Transform == nil {
			return v, true, nil
		}
		out, ok, err := transform(ctx, v, spec.Transform, env)
		if err != nil || ok {
			return out, ok, err
		}
	}
	return nil, false, nil
}

// Resolve evaluates each spec in turn and returns the first value found.
func (s Specs) Resolve(ctx context.Context, rec interface{}, env function.Env) (interface{}, bool, error) {
	for _, spec := range s {
		v, ok, err := Resolve(ctx, rec, spec, env)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return nil, false, nil
}

// Select parses sel and resolves it against rec.
func Select(ctx context.Context, rec interface{}, sel interface{}, env function.Env) (interface{}, bool, error) {
	specs, err := ParseSpecs(sel)
	if err != nil {
		return nil, false, err
	}
	return specs.Resolve(ctx, rec, env)
}

func lookup(rec interface{}, path string) (interface{}, bool) {
	if path == Identity || path == "" {
		return rec, true
	}
	if templatePattern.MatchString(path) {
		return Interpolate(rec, path), true
	}
	return record.Get(rec, path)
}

// Interpolate replaces every ${path} token of tmpl with the value found at path in rec.
// Missing values become empty strings.
func Interpolate(rec interface{}, tmpl string) string {
	return templatePattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
		path := templatePattern.FindStringSubmatch(tok)[1]
		v, ok := lookup(rec, path)
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}

// Stringify renders v the way templates embed it: maps and lists as JSON.
func Stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case fmt.Stringer:
		return s.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(record.Normalize(v))
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func transform(ctx context.Context, v interface{}, def pipeline.Definition, env function.Env) (interface{}, bool, error) {
	if env.Compose == nil {
		return nil, false, pipeline.ConfigurationError{Reason: "selector transform needs a compose function"}
	}
	out := pipe.NewCollector("selector-result")
	u, err := env.Compose(pipeline.Sequence{Stages: []pipeline.Definition{
		pipeline.Raw{Unit: pipe.FromSlice("selector-value", v)},
		def,
		pipeline.Raw{Unit: out},
	}})
	if err != nil {
		return nil, false, err
	}
	r, ok := u.(pipe.Runner)
	if !ok {
		return nil, false, pipeline.DirectionError{Reason: fmt.Sprintf("cannot run %s", u.Name())}
	}
	if err := r.Run(ctx); err != nil {
		return nil, false, err
	}
	last, ok := out.Last()
	return last, ok, nil
}
