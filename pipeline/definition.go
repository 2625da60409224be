package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/compose/conduit/pipe"
)

// Definition is a node of a pipeline tree: Leaf, Sequence, Fan or Raw.
type Definition interface {
	definition()
}

// Options is an alias to map[string]interface{} and helps turn the loose options of a
// definition into a concrete named struct.
type Options map[string]interface{}

// Construct will Marshal the Options and then Unmarshal them into conf.
func (o Options) Construct(conf interface{}) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, conf)
}

// GetString returns the value stored under key, or an empty string if the key doesn't
// exist or isn't a string value.
func (o Options) GetString(key string) string {
	s, _ := o[key].(string)
	return s
}

// GetBool returns the value stored under key, or def when it is missing or not a bool.
func (o Options) GetBool(key string, def bool) bool {
	b, ok := o[key].(bool)
	if !ok {
		return def
	}
	return b
}

// Leaf names a single stage the factory knows how to create.
type Leaf struct {
	Type    string
	Options Options
}

// Sequence pipes its stages into one another in order.
type Sequence struct {
	Stages  []Definition
	Options Options
}

// Fan combines sibling stages, either as one source reading each member to completion
// in turn, or as one sink duplicating every record into each member. RecordMode false
// frames the merged flow as raw bytes.
type Fan struct {
	Stages     []Definition
	RecordMode bool
	Options    Options
}

// Raw embeds a unit that was built outside of the factory.
type Raw struct {
	Unit pipe.Unit
}

func (Leaf) definition()     {}
func (Sequence) definition() {}
func (Fan) definition()      {}
func (Raw) definition()      {}

// Tree renders def as an indented outline, one stage per line.
func Tree(def Definition) string {
	var b strings.Builder
	writeTree(&b, def, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func writeTree(b *strings.Builder, def Definition, depth int) {
	prefix := strings.Repeat("  ", depth) + "- "
	switch d := def.(type) {
	case Leaf:
		fmt.Fprintf(b, "%s%-24s %s\n", prefix, d.Type, optionSummary(d.Options))
	case Sequence:
		fmt.Fprintf(b, "%sstream\n", prefix)
		for _, s := range d.Stages {
			writeTree(b, s, depth+1)
		}
	case Fan:
		mode := "records"
		if !d.RecordMode {
			mode = "bytes"
		}
		fmt.Fprintf(b, "%scombine (%s)\n", prefix, mode)
		for _, s := range d.Stages {
			writeTree(b, s, depth+1)
		}
	case Raw:
		if d.Unit == nil {
			fmt.Fprintf(b, "%sraw <nil>\n", prefix)
			return
		}
		fmt.Fprintf(b, "%sraw %s (%s)\n", prefix, d.Unit.Name(), d.Unit.Capability())
	default:
		fmt.Fprintf(b, "%s%T\n", prefix, def)
	}
}

func optionSummary(o Options) string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
