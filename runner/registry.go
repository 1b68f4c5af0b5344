package runner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gh-sh4/dc-pvr-tests/capture"
)

// Case is one registered probe.
type Case struct {
	Name        string
	Flags       Flags
	Func        func(*capture.Context)
	Description string
}

// Registry errors.
var (
	ErrEmptyName   = errors.New("runner: case name is empty")
	ErrNilFunc     = errors.New("runner: case function is nil")
	ErrDuplicate   = errors.New("runner: case registered twice")
	ErrUnknownCase = errors.New("runner: unknown case")
)

// Registry holds test cases by name. It is safe for concurrent use.
//
// Unlike a package-level table filled from init functions, a Registry is
// built explicitly so that tests can assemble their own:
//
//	reg := runner.NewRegistry()
//	probes.Register(reg)
//	cases, err := reg.Select([]string{"ta_basic_single_poly"}, 0)
type Registry struct {
	mu    sync.RWMutex
	cases map[string]Case
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{cases: make(map[string]Case)}
}

// Add registers c. Duplicate names are rejected rather than overwritten.
func (r *Registry) Add(c Case) error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if c.Func == nil {
		return fmt.Errorf("%w: %s", ErrNilFunc, c.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.cases[c.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.Name)
	}
	r.cases[c.Name] = c
	return nil
}

// MustAdd is Add that panics on error. It is meant for static tables.
func (r *Registry) MustAdd(c Case) {
	if err := r.Add(c); err != nil {
		panic(err)
	}
}

// Lookup returns the case registered under name.
func (r *Registry) Lookup(name string) (Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[name]
	return c, ok
}

// Len returns the number of registered cases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// Cases returns every case sorted by name.
func (r *Registry) Cases() []Case {
	r.mu.RLock()
	out := make([]Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, c)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Case) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Select returns the cases to run, sorted by name.
//
// With names given, exactly those cases are returned, filtered by flags
// when flags is non-zero; an unknown name is an error. With no names,
// every case sharing a bit with flags is returned, and flags 0 selects
// every case that is not a benchmark.
func (r *Registry) Select(names []string, flags Flags) ([]Case, error) {
	match := func(c Case) bool {
		if flags == 0 {
			return len(names) > 0 || c.Flags&FlagBenchmark == 0
		}
		return c.Flags&flags != 0
	}
	if len(names) == 0 {
		var out []Case
		for _, c := range r.Cases() {
			if match(c) {
				out = append(out, c)
			}
		}
		return out, nil
	}

	var out []Case
	for _, name := range names {
		c, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCase, name)
		}
		if match(c) && !slices.ContainsFunc(out, func(o Case) bool { return o.Name == name }) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Case) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
