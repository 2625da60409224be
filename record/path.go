package record

import (
	"reflect"
	"strconv"
	"strings"
)

// Split breaks a path like `a.b[0]["c.d"]` into its segments: a, b, 0, c.d.
func Split(path string) []string {
	var (
		segs []string
		cur  strings.Builder
	)
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			segs = append(segs, cur.String())
			cur.Reset()
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			if cur.Len() > 0 {
				segs = append(segs, cur.String())
				cur.Reset()
			}
			segs = append(segs, strings.Trim(path[i+1:i+end], `"'`))
			i += end
			if i+1 < len(path) && path[i+1] == '.' {
				i++
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 || len(segs) == 0 || strings.HasSuffix(path, ".") {
		segs = append(segs, cur.String())
	}
	return segs
}

// Get resolves path against v. A key matching path verbatim wins over a nested lookup.
// The boolean is false when nothing is found along the path.
func Get(v interface{}, path string) (interface{}, bool) {
	if val, ok := child(v, path); ok {
		return val, true
	}
	segs := Split(path)
	if len(segs) == 1 && segs[0] == path {
		return nil, false
	}
	cur := v
	for _, seg := range segs {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v interface{}, key string) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		val, ok := t[key]
		return val, ok
	case Data:
		val, ok := t[key]
		return val, ok
	case map[interface{}]interface{}:
		val, ok := t[key]
		return val, ok
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

// Set stores value at path inside m, creating nested maps along the way. Values in the
// way that are not maps are replaced.
func Set(m map[string]interface{}, path string, value interface{}) {
	segs := Split(path)
	cur := m
	for _, seg := range segs[:len(segs)-1] {
		nm, ok := AsMap(cur[seg])
		if !ok {
			nm = map[string]interface{}{}
		}
		cur[seg] = nm
		cur = nm
	}
	cur[segs[len(segs)-1]] = value
}

// Delete removes the value at path from m. A key matching path verbatim is removed
// first.
func Delete(m map[string]interface{}, path string) {
	if _, ok := m[path]; ok {
		delete(m, path)
		return
	}
	segs := Split(path)
	parent := interface{}(m)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := child(parent, seg)
		if !ok {
			return
		}
		parent = next
	}
	last := segs[len(segs)-1]
	switch pm := parent.(type) {
	case map[string]interface{}:
		delete(pm, last)
	case Data:
		delete(pm, last)
	case map[interface{}]interface{}:
		delete(pm, last)
	}
}
