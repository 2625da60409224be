package flatten

import (
	"context"
	"sort"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "flatten",
			Description: "replaces an object by one of its values, or each object of a list",
			Creator: func() function.Function {
				return &Flatten{}
			},
		},
	}
}

// Flatten picks the value stored under Key, or under the first key in sorted order when
// Key is empty. Lists are flattened element by element.
type Flatten struct {
	Key string `json:"key"`
}

func (f *Flatten) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if l, ok := rec.([]interface{}); ok {
		out := make([]interface{}, len(l))
		for i, v := range l {
			out[i] = f.one(v)
		}
		return out, nil
	}
	return f.one(rec), nil
}

func (f *Flatten) one(v interface{}) interface{} {
	m, ok := record.AsMap(v)
	if !ok {
		return nil
	}
	key := f.Key
	if key == "" {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		if len(keys) == 0 {
			return nil
		}
		sort.Strings(keys)
		key = keys[0]
	}
	return m[key]
}
