package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/compose/conduit/pipeline"
	"github.com/compose/conduit/record"
)

// ParseSpecs reads the loose form of a selector found in options:
//
//	"path"
//	["first", "fallback"]
//	{path: "path" | [...], transform: <definition>}
//	[<any of the above>, ...]
//
// A list is a fallback chain either way; its items become separate specs.
func ParseSpecs(v interface{}) (Specs, error) {
	switch s := v.(type) {
	case Specs:
		return s, nil
	case Spec:
		return Specs{s}, nil
	case string:
		return Specs{{Paths: []string{s}}}, nil
	case []string:
		if len(s) == 0 {
			return nil, pipeline.ConfigurationError{Reason: "selector needs at least one path"}
		}
		return Specs{{Paths: s}}, nil
	case []interface{}:
		if len(s) == 0 {
			return nil, pipeline.ConfigurationError{Reason: "selector needs at least one path"}
		}
		var specs Specs
		for _, item := range s {
			parsed, err := ParseSpecs(item)
			if err != nil {
				return nil, err
			}
			specs = append(specs, parsed...)
		}
		return specs, nil
	case nil:
		return nil, pipeline.ConfigurationError{Reason: "empty selector"}
	}
	m, ok := record.AsMap(v)
	if !ok {
		return nil, pipeline.ConfigurationError{Reason: fmt.Sprintf("selector must be a path, a list or a map, got %T", v)}
	}
	spec, err := parseMap(m)
	if err != nil {
		return nil, err
	}
	return Specs{spec}, nil
}

func parseMap(m map[string]interface{}) (Spec, error) {
	var unknown []string
	for k := range m {
		if k != "path" && k != "transform" {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Spec{}, pipeline.ConfigurationError{Reason: fmt.Sprintf("selector only accepts the keys path and transform, got %s", strings.Join(unknown, ", "))}
	}

	var spec Spec
	switch p := m["path"].(type) {
	case nil:
		spec.Paths = []string{Identity}
	case string:
		spec.Paths = []string{p}
	case []string:
		spec.Paths = p
	case []interface{}:
		for _, item := range p {
			s, ok := item.(string)
			if !ok {
				return Spec{}, pipeline.ConfigurationError{Reason: fmt.Sprintf("selector paths must be strings, got %T", item)}
			}
			spec.Paths = append(spec.Paths, s)
		}
	default:
		return Spec{}, pipeline.ConfigurationError{Reason: fmt.Sprintf("selector path must be a string or a list, got %T", p)}
	}

	if t, ok := m["transform"]; ok && !isEmpty(t) {
		def, err := pipeline.Parse(t)
		if err != nil {
			return Spec{}, err
		}
		spec.Transform = def
	}
	return spec, nil
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(t) == 0
	case string:
		return t == ""
	}
	return false
}
