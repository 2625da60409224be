package gojajs

import (
	"context"
	"errors"
	"io/ioutil"
	"time"

	"github.com/compose/mejson"
	"github.com/dop251/goja"
	"gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
)

var (
	_ function.Function = &Goja{}

	// ErrInvalidMessageType is a generic error returned when the object returned from the
	// JS function carries no `data` property.
	ErrInvalidMessageType = errors.New("returned document has no data")

	// ErrEmptyFilename will be returned when neither a filename nor a script is provided.
	ErrEmptyFilename = errors.New("no filename specified")

	// ErrMissingTransform is returned when the script does not define a transform function.
	ErrMissingTransform = errors.New("script does not define a transform function")
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "js",
			Description: "runs each record through a JavaScript transform(doc) function",
			Creator: func() function.Function {
				return &Goja{}
			},
		},
		{
			Name:        "goja",
			Description: "alias of js",
			Creator: func() function.Function {
				return &Goja{}
			},
		},
	}
}

// Goja hands every record to the JavaScript function `transform` as `{data: record}`.
// The function returns the (possibly modified) object; setting `skip` to true drops the
// record.
type Goja struct {
	Filename string `json:"filename"`
	Script   string `json:"script"`
	vm       *goja.Runtime
}

// JSFunc defines the structure a transformer function.
type JSFunc func(map[string]interface{}) *goja.Object

// Apply fulfills the function.Function interface by transforming the incoming record with
// the configured JavaScript function.
func (g *Goja) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if g.vm == nil {
		if err := g.initVM(); err != nil {
			return nil, err
		}
	}
	return g.transformOne(rec)
}

func (g *Goja) initVM() error {
	fn, err := g.extractFunction()
	if err != nil {
		return err
	}
	vm := goja.New()
	if _, err := vm.RunString(fn); err != nil {
		return err
	}
	if _, ok := goja.AssertFunction(vm.Get("transform")); !ok {
		return ErrMissingTransform
	}
	g.vm = vm
	return nil
}

func (g *Goja) extractFunction() (string, error) {
	if g.Script != "" {
		return g.Script, nil
	}
	if g.Filename == "" {
		return "", ErrEmptyFilename
	}

	ba, err := ioutil.ReadFile(g.Filename)
	if err != nil {
		return "", err
	}

	return string(ba), nil
}

func (g *Goja) transformOne(rec interface{}) (interface{}, error) {
	var (
		outDoc *goja.Object
		doc    interface{}
		err    error
	)

	now := time.Now().Nanosecond()
	if m, ok := record.AsMap(rec); ok {
		doc, err = mejson.Marshal(bson.M(m))
	} else {
		doc, err = mejson.Marshal(rec)
	}
	if err != nil {
		return nil, err
	}
	currDoc := map[string]interface{}{"data": doc}

	// lets run our transformer on the document
	beforeVM := time.Now().Nanosecond()
	var jsf JSFunc
	if err := g.vm.ExportTo(g.vm.Get("transform"), &jsf); err != nil {
		return nil, err
	}
	outDoc = jsf(currDoc)
	if outDoc == nil {
		return nil, nil
	}

	var res map[string]interface{}
	if err := g.vm.ExportTo(outDoc, &res); err != nil {
		return nil, err
	}
	afterVM := time.Now().Nanosecond()
	out, err := fromResult(res)
	if err != nil {
		return nil, err
	}
	then := time.Now().Nanosecond()
	log.With("transformed_in_micro", (then-now)/1000).
		With("marshaled_in_micro", (beforeVM-now)/1000).
		With("vm_time_in_micro", (afterVM-beforeVM)/1000).
		With("unmarshaled_in_micro", (then-afterVM)/1000).
		Debugln("document transformed")

	return out, nil
}

func fromResult(res map[string]interface{}) (interface{}, error) {
	if skip, _ := res["skip"].(bool); skip {
		return nil, nil
	}
	d, ok := res["data"]
	if !ok {
		return nil, ErrInvalidMessageType
	}
	if m, ok := d.(map[string]interface{}); ok {
		out, err := mejson.Unmarshal(m)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}(out), nil
	}
	return d, nil
}
