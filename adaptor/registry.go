package adaptor

import (
	"sort"
)

// Creator defines the init structure for an adaptor
type Creator func() Adaptor

// Registration describes an adaptor made available under Name.
type Registration struct {
	Name         string
	Description  string
	SampleConfig string
	Creator      Creator
}

// Registry is an immutable set of adaptors. The zero value knows no adaptors.
type Registry struct {
	regs map[string]Registration
}

// NewRegistry returns a Registry holding regs, later registrations replacing earlier
// ones of the same name.
func NewRegistry(regs ...Registration) *Registry {
	return (&Registry{}).With(regs...)
}

// With returns a new Registry holding the adaptors of r plus regs.
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

// Lookup returns the registration of name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	if r == nil {
		return Registration{}, false
	}
	reg, ok := r.regs[name]
	return reg, ok
}

// Get looks up an adaptor by name and then init's it with the provided Config.
// returns ErrNotFound if the provided name was not registered.
func (r *Registry) Get(name string, conf Config) (Adaptor, error) {
	reg, ok := r.Lookup(name)
	if !ok {
		return nil, ErrNotFound{name}
	}
	a := reg.Creator()
	if err := conf.Construct(a); err != nil {
		return nil, ConfigError{name, err}
	}
	return a, nil
}

// Registrations returns every registered adaptor sorted by name.
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

// Names returns a sorted slice of the names of every adaptor registered.
func (r *Registry) Names() []string {
	regs := r.Registrations()
	all := make([]string, len(regs))
	for i, reg := range regs {
		all[i] = reg.Name
	}
	return all
}
