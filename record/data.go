// Package record holds helpers for the loosely typed records flowing through a pipeline:
// nested path access, deep copies and normalizing decoded documents.
package record

import (
	"fmt"
)

// Data is an alias for a map so we can add functions unique to records.
type Data map[string]interface{}

// Get returns the value found at path.
func (d Data) Get(path string) (interface{}, bool) {
	return Get(map[string]interface{}(d), path)
}

// Set stores value at path, creating nested maps as needed.
func (d Data) Set(path string, value interface{}) {
	Set(map[string]interface{}(d), path, value)
}

// Has reports whether a value exists at path.
func (d Data) Has(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// Delete removes the value at path.
func (d Data) Delete(path string) {
	Delete(map[string]interface{}(d), path)
}

// AsMap converts the underlying Data d to a map[string]interface{}.
func (d Data) AsMap() map[string]interface{} {
	m := make(map[string]interface{}, len(d))
	for key := range d {
		m[key] = d[key]
	}
	return m
}

// AsMap returns v as a map when it is one of the map shapes decoders produce.
func AsMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Data:
		return map[string]interface{}(m), true
	case map[interface{}]interface{}:
		return Normalize(m).(map[string]interface{}), true
	}
	return nil, false
}

// Clone returns a deep copy of maps and slices in v. Other values are shared.
func Clone(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case Data:
		return Data(Clone(map[string]interface{}(t)).(map[string]interface{}))
	case map[interface{}]interface{}:
		return Clone(Normalize(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	}
	return v
}

// Normalize converts the map[interface{}]interface{} values produced by YAML decoding
// into map[string]interface{}, recursively, so they can be JSON encoded.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	}
	return v
}
