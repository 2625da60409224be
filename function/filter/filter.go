package filter

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

// UnknownOperatorError is returned when Operator is not one of the supported comparisons.
type UnknownOperatorError struct {
	Op string
}

func (e UnknownOperatorError) Error() string {
	return fmt.Sprintf("unkown operator, %s", e.Op)
}

// WrongTypeError is returned when a value cannot be compared numerically.
type WrongTypeError struct {
	Wanted string
	Got    string
}

func (e WrongTypeError) Error() string {
	return fmt.Sprintf("value is of incompatible type, wanted %s, got %s", e.Wanted, e.Got)
}

var (
	_ function.Function = &Filter{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "filter",
			Description: "keeps the records whose field compares true against match",
			Creator: func() function.Function {
				return &Filter{}
			},
		},
	}
}

// Filter drops every record whose Field does not compare true against Match.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Match    interface{} `json:"match"`
}

func (f *Filter) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	val, found := record.Get(rec, f.Field)
	switch f.Operator {
	case "==", "eq", "$eq":
		if reflect.DeepEqual(val, f.Match) {
			return rec, nil
		}
	case "!=", "ne", "$ne":
		if !reflect.DeepEqual(val, f.Match) {
			return rec, nil
		}
	case "exists", "$exists":
		if found == (f.Match != false) {
			return rec, nil
		}
	case "=~":
		pattern, ok := f.Match.(string)
		if !ok {
			return nil, WrongTypeError{"string", fmt.Sprintf("%T", f.Match)}
		}
		s, ok := val.(string)
		if !ok {
			return nil, nil
		}
		if ok, err := regexp.MatchString(pattern, s); err != nil || ok {
			if err != nil {
				return nil, err
			}
			return rec, nil
		}
	case ">", "gt", "$gt":
		v, m, err := convertForComparison(val, f.Match)
		if err == nil && v > m {
			return rec, err
		}
		return nil, err
	case ">=", "gte", "$gte":
		v, m, err := convertForComparison(val, f.Match)
		if err == nil && v >= m {
			return rec, err
		}
		return nil, err
	case "<", "lt", "$lt":
		v, m, err := convertForComparison(val, f.Match)
		if err == nil && v < m {
			return rec, err
		}
		return nil, err
	case "<=", "lte", "$lte":
		v, m, err := convertForComparison(val, f.Match)
		if err == nil && v <= m {
			return rec, err
		}
		return nil, err
	default:
		return nil, UnknownOperatorError{f.Operator}
	}
	return nil, nil
}

func convertForComparison(in1, in2 interface{}) (float64, float64, error) {
	float1, err := convertToFloat(in1)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	float2, err := convertToFloat(in2)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return float1, float2, nil
}

func convertToFloat(in interface{}) (float64, error) {
	switch i := in.(type) {
	case float64:
		return i, nil
	case int:
		return float64(i), nil
	case int64:
		return float64(i), nil
	case string:
		return strconv.ParseFloat(i, 64)
	default:
		return math.NaN(), WrongTypeError{"float64 or int", fmt.Sprintf("%T", i)}
	}
}
