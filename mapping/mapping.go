// Package mapping builds output records out of named selectors.
//
// Every entry of a mapping pairs an output key with a selector. Plain keys are dotted
// paths into the output record. Keys shaped like a URI (`scheme://identifier`) are
// attribute references instead: they land in the output's "attributes" list as
//
//	{"attribute": {"$ref": key}, "value": value, "locale": locale}
//
// replacing any entry with the same reference (and locale, when one is configured).
package mapping

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/pipeline"
	"github.com/compose/conduit/record"
	"github.com/compose/conduit/selector"
)

const (
	// AttributesKey holds the attribute references of a mapped record.
	AttributesKey = "attributes"

	refKey    = "$ref"
	attrKey   = "attribute"
	valueKey  = "value"
	localeKey = "locale"
)

var attributePattern = regexp.MustCompile(`^[^:]+://.+$`)

// IsAttribute reports whether key names an attribute reference.
func IsAttribute(key string) bool {
	return attributePattern.MatchString(key)
}

// Options configure a single Map call.
type Options struct {
	Mapping            map[string]selector.Specs
	Template           interface{}
	AttributeLocale    string
	UseValueAsTemplate bool
}

// ParseMapping parses every selector of a loosely typed mapping.
func ParseMapping(m map[string]interface{}) (map[string]selector.Specs, error) {
	out := make(map[string]selector.Specs, len(m))
	for k, v := range m {
		specs, err := selector.ParseSpecs(v)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", k, err)
		}
		out[k] = specs
	}
	return out, nil
}

// Map resolves every selector of opts.Mapping against rec and assembles the results on
// top of the configured template. Selectors are resolved concurrently; the first
// failure cancels the others and is returned.
func Map(ctx context.Context, rec interface{}, opts Options, env function.Env) (map[string]interface{}, error) {
	out, err := base(rec, opts)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(opts.Mapping))
	for k := range opts.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type result struct {
		value interface{}
		found bool
	}
	results := make([]result, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		i, specs := i, opts.Mapping[k]
		g.Go(func() error {
			v, ok, err := specs.Resolve(gctx, rec, env)
			if err != nil {
				return err
			}
			results[i] = result{v, ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, k := range keys {
		r := results[i]
		if IsAttribute(k) {
			setAttribute(out, k, opts.AttributeLocale, r.value, r.found)
			continue
		}
		if r.found {
			record.Set(out, k, r.value)
		}
	}
	return out, nil
}

func base(rec interface{}, opts Options) (map[string]interface{}, error) {
	var src interface{}
	switch {
	case opts.Template != nil:
		src = opts.Template
	case opts.UseValueAsTemplate:
		src = rec
	default:
		return map[string]interface{}{}, nil
	}
	m, ok := record.AsMap(record.Clone(src))
	if !ok {
		return nil, pipeline.ConfigurationError{Reason: fmt.Sprintf("mapping template must be a map, got %T", src)}
	}
	return m, nil
}

func setAttribute(out map[string]interface{}, key, locale string, value interface{}, found bool) {
	entry := map[string]interface{}{attrKey: map[string]interface{}{refKey: key}}
	if found {
		entry[valueKey] = value
	}
	if locale != "" {
		entry[localeKey] = locale
	}

	attrs, _ := out[AttributesKey].([]interface{})
	for i, existing := range attrs {
		if matches(existing, key, locale) {
			attrs[i] = entry
			out[AttributesKey] = attrs
			return
		}
	}
	out[AttributesKey] = append(attrs, entry)
}

func matches(v interface{}, key, locale string) bool {
	m, ok := record.AsMap(v)
	if !ok {
		return false
	}
	ref, _ := record.Get(m, attrKey+"."+refKey)
	if ref != key {
		return false
	}
	return locale == "" || m[localeKey] == locale
}
