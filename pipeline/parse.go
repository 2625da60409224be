package pipeline

import (
	"fmt"
	"os"
	"regexp"

	version "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v2"

	"github.com/compose/conduit/pipe"
	"github.com/compose/conduit/record"
)

// SupportedVersion is the only document version understood by ParseDocument.
var SupportedVersion = version.Must(version.NewVersion("1.0.0"))

// Parse turns a decoded document into a Definition. It accepts
//
//   - a string, shorthand for a Leaf of that type
//   - a list, shorthand for a Sequence
//   - a map with "stream" (one definition or a list), "combine" (a list) or "type"
//   - a pipe.Unit or a list of them, used as Raw definitions
//   - an existing Definition, returned as is
func Parse(v interface{}) (Definition, error) {
	switch d := v.(type) {
	case Definition:
		return d, nil
	case string:
		if d == "" {
			return nil, ConfigurationError{Reason: "empty stage type"}
		}
		return Leaf{Type: d}, nil
	case pipe.Unit:
		return Raw{Unit: d}, nil
	case []pipe.Unit:
		seq := Sequence{Stages: make([]Definition, len(d))}
		for i, u := range d {
			seq.Stages[i] = Raw{Unit: u}
		}
		return seq, nil
	case []string:
		seq := Sequence{Stages: make([]Definition, len(d))}
		for i, s := range d {
			stage, err := Parse(s)
			if err != nil {
				return nil, err
			}
			seq.Stages[i] = stage
		}
		return seq, nil
	case []Definition:
		return Sequence{Stages: d}, nil
	case []interface{}:
		stages, err := parseList(d)
		if err != nil {
			return nil, err
		}
		return Sequence{Stages: stages}, nil
	case nil:
		return nil, ConfigurationError{Reason: "empty definition"}
	}
	if m, ok := record.AsMap(v); ok {
		return parseMap(m)
	}
	return nil, ConfigurationError{Reason: fmt.Sprintf("unsupported definition of type %T", v)}
}

func parseList(l []interface{}) ([]Definition, error) {
	stages := make([]Definition, len(l))
	for i, item := range l {
		stage, err := Parse(item)
		if err != nil {
			return nil, err
		}
		stages[i] = stage
	}
	return stages, nil
}

func parseMap(m map[string]interface{}) (Definition, error) {
	stream, hasStream := m["stream"]
	combine, hasCombine := m["combine"]
	t, hasType := m["type"]
	opts, err := parseOptions(m["options"])
	if err != nil {
		return nil, err
	}

	switch {
	case hasStream && hasCombine:
		return nil, ConfigurationError{Reason: "stream and combine cannot be used together"}
	case hasType && hasStream:
		return nil, ConfigurationError{Reason: "type and stream cannot be used together"}
	case hasType && hasCombine:
		return nil, ConfigurationError{Reason: "type and combine cannot be used together"}
	case hasStream:
		var stages []Definition
		if l, ok := stream.([]interface{}); ok {
			if stages, err = parseList(l); err != nil {
				return nil, err
			}
		} else {
			stage, err := Parse(stream)
			if err != nil {
				return nil, err
			}
			stages = []Definition{stage}
		}
		if len(stages) == 0 {
			return nil, ConfigurationError{Reason: "stream needs at least one stage"}
		}
		return Sequence{Stages: stages, Options: opts}, nil
	case hasCombine:
		l, ok := combine.([]interface{})
		if !ok {
			return nil, ConfigurationError{Reason: "combine expects a list of stages"}
		}
		if len(l) == 0 {
			return nil, ConfigurationError{Reason: "combine needs at least one stage"}
		}
		stages, err := parseList(l)
		if err != nil {
			return nil, err
		}
		recordMode := opts.GetBool("recordMode", opts.GetBool("objectMode", true))
		return Fan{Stages: stages, RecordMode: recordMode, Options: opts}, nil
	}

	if !hasType {
		return nil, ConfigurationError{Reason: "missing either a stream, combine or type"}
	}
	s, ok := t.(string)
	if !ok || s == "" {
		return nil, ConfigurationError{Reason: fmt.Sprintf("type must be a non empty string, got %v", t)}
	}
	return Leaf{Type: s, Options: opts}, nil
}

func parseOptions(v interface{}) (Options, error) {
	if v == nil {
		return Options{}, nil
	}
	m, ok := record.AsMap(record.Normalize(v))
	if !ok {
		return nil, ConfigurationError{Reason: fmt.Sprintf("options must be a map, got %T", v)}
	}
	return Options(m), nil
}

// Document is a versioned pipeline definition.
type Document struct {
	Version  *version.Version
	Pipeline Definition
}

var envPattern = regexp.MustCompile(`\$\{env:([a-zA-Z0-9_]+)\}`)

// setConfigEnvironment replaces environment variables marked in the form ${env:FOO}
// with the value stored in the environment variable `FOO`.
func setConfigEnvironment(ba []byte) []byte {
	return envPattern.ReplaceAllFunc(ba, func(m []byte) []byte {
		name := envPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// ParseDocument decodes a YAML (or JSON) pipeline document. The top level is a
// definition carrying an extra version key, which must be 1.0.0.
func ParseDocument(ba []byte) (*Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(setConfigEnvironment(ba), &raw); err != nil {
		return nil, ConfigurationError{Reason: fmt.Sprintf("unable to decode document, %s", err)}
	}
	m, ok := record.AsMap(record.Normalize(raw))
	if !ok {
		return nil, ConfigurationError{Reason: "document must be a map"}
	}
	v, err := parseVersion(m["version"])
	if err != nil {
		return nil, err
	}
	delete(m, "version")

	def, err := Parse(m)
	if err != nil {
		return nil, err
	}
	return &Document{Version: v, Pipeline: def}, nil
}

func parseVersion(v interface{}) (*version.Version, error) {
	if v == nil {
		return nil, ConfigurationError{Reason: "document is missing a version"}
	}
	parsed, err := version.NewVersion(fmt.Sprint(v))
	if err != nil || parsed.Compare(SupportedVersion) != 0 {
		return nil, ConfigurationError{Reason: fmt.Sprintf("invalid document version %v, must be %s", v, SupportedVersion)}
	}
	return parsed, nil
}
