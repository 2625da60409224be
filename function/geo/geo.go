// Package geo reads coordinates out of loosely shaped values and encodes them as
// GeoJSON or WKT points.
package geo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	coord := func() function.Function { return &Coordinate{} }
	return []function.Registration{
		{Name: "to-coordinate", Description: "reads a [lon, lat] pair from a string or an object", Creator: coord},
		{Name: "position", Description: "alias of to-coordinate", Creator: coord},
		{Name: "to-geojson", Description: "encodes a coordinate as a GeoJSON point", Creator: func() function.Function { return &GeoJSON{} }},
		{Name: "to-wkt", Description: "encodes a coordinate as a WKT point", Creator: func() function.Function { return &WKT{} }},
	}
}

// Coordinate reads "lon,lat" strings (split by Delimiter, "lat,lon" when Flip is set) or
// objects with lon/lng/longitude and lat/latitude keys.
type Coordinate struct {
	Flip      bool   `json:"flip"`
	Delimiter string `json:"delimiter"`
}

func (c *Coordinate) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	p, ok := c.point(rec)
	if !ok {
		return nil, nil
	}
	return []interface{}{p[0], p[1]}, nil
}

func (c *Coordinate) point(rec interface{}) ([]float64, bool) {
	switch v := rec.(type) {
	case string:
		delim := c.Delimiter
		if delim == "" {
			delim = ","
		}
		parts := strings.SplitN(v, delim, 2)
		if len(parts) != 2 {
			return nil, false
		}
		first, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		second, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		if c.Flip {
			return []float64{second, first}, true
		}
		return []float64{first, second}, true
	case []interface{}:
		if len(v) != 2 {
			return nil, false
		}
		lon, ok1 := number(v[0])
		lat, ok2 := number(v[1])
		return []float64{lon, lat}, ok1 && ok2
	case []float64:
		return v, len(v) == 2
	}
	m, ok := record.AsMap(rec)
	if !ok {
		return nil, false
	}
	lon, ok1 := first(m, "lon", "longitude", "lng")
	lat, ok2 := first(m, "lat", "latitude")
	return []float64{lon, lat}, ok1 && ok2
}

func first(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := number(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// GeoJSON encodes the coordinate read from each value as a GeoJSON Point object.
type GeoJSON struct {
	Coordinate
}

func (g *GeoJSON) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	p, ok := g.point(rec)
	if !ok {
		return nil, nil
	}
	b, err := geojson.Marshal(geom.NewPointFlat(geom.XY, p))
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WKT encodes the coordinate read from each value as well-known text.
type WKT struct {
	Coordinate
}

func (w *WKT) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	p, ok := w.point(rec)
	if !ok {
		return nil, nil
	}
	return wkt.Marshal(geom.NewPointFlat(geom.XY, p))
}
