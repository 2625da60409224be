package function

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ErrNotFound gives the details of the failed function
type ErrNotFound struct {
	Name string
}

func (a ErrNotFound) Error() string {
	return fmt.Sprintf("function '%s' not found in registry", a.Name)
}

// ConfigError is returned when the options of a function cannot be applied.
type ConfigError struct {
	Name string
	Err  error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid options for function '%s', %s", e.Name, e.Err)
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// Creator defines the init structure for a Function.
type Creator func() Function

// Registration describes a function made available under Name.
type Registration struct {
	Name        string
	Description string
	Creator     Creator
}

// Registry is an immutable set of functions. The zero value knows no functions.
type Registry struct {
	regs map[string]Registration
}

// NewRegistry returns a Registry holding regs, later registrations replacing earlier
// ones of the same name.
func NewRegistry(regs ...Registration) *Registry {
	return (&Registry{}).With(regs...)
}

// With returns a new Registry holding the functions of r plus regs.
func (r *Registry) With(regs ...Registration) *Registry {
	out := &Registry{regs: make(map[string]Registration)}
	if r != nil {
		for k, v := range r.regs {
			out.regs[k] = v
		}
	}
	for _, reg := range regs {
		out.regs[reg.Name] = reg
	}
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.regs[name]
	return ok
}

// Get looks up a function by name and then init's it with the provided options.
// Options the function does not know are rejected.
// returns ErrNotFound if the provided name was not registered.
func (r *Registry) Get(name string, conf map[string]interface{}) (Function, error) {
	if r == nil {
		return nil, ErrNotFound{name}
	}
	reg, ok := r.regs[name]
	if !ok {
		return nil, ErrNotFound{name}
	}
	f := reg.Creator()
	if len(conf) == 0 {
		return f, nil
	}
	b, err := json.Marshal(conf)
	if err != nil {
		return nil, ConfigError{name, err}
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f); err != nil {
		return nil, ConfigError{name, err}
	}
	return f, nil
}

// Registrations returns every registered function sorted by name.
func (r *Registry) Registrations() []Registration {
	if r == nil {
		return nil
	}
	all := make([]Registration, 0, len(r.regs))
	for _, reg := range r.regs {
		all = append(all, reg)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Names returns a sorted slice of the names of every function registered.
func (r *Registry) Names() []string {
	regs := r.Registrations()
	all := make([]string, len(regs))
	for i, reg := range regs {
		all[i] = reg.Name
	}
	return all
}
