package tl

import (
	"fmt"
	"sort"
	"sync"
)

// Object is a value that can be written to and read from the TL wire.
type Object interface {
	// ID returns the constructor id written in front of the fields.
	ID() int32

	// TypeName returns the constructor name, e.g. "options.info".
	TypeName() string

	// Store writes the fields, without the constructor id.
	Store(s Storer)

	// Fetch reads the fields, without the constructor id.
	Fetch(p *Parser)
}

// Function is a request object.
type Function interface {
	Object

	// ReturnType names the boxed type the function answers with.
	ReturnType() string
}

// Kind tells whether a constructor builds a type or a function.
type Kind uint8

const (
	// KindType is a plain data constructor
	KindType Kind = iota

	// KindFunction is a request constructor
	KindFunction
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Constructor describes one registered constructor.
type Constructor struct {
	ID   int32
	Name string
	Kind Kind
	New  func() Object
}

// Registry maps constructor ids to factories.
type Registry struct {
	mu           sync.RWMutex
	constructors map[int32]Constructor
	names        map[string]int32
}

// DefaultRegistry is used by the package-level decode helpers.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[int32]Constructor),
		names:        make(map[string]int32),
	}
}

// RegisterType adds a data constructor.
func (r *Registry) RegisterType(id int32, name string, ctor func() Object) {
	r.register(Constructor{ID: id, Name: name, Kind: KindType, New: ctor})
}

// RegisterFunction adds a request constructor.
func (r *Registry) RegisterFunction(id int32, name string, ctor func() Function) {
	r.register(Constructor{ID: id, Name: name, Kind: KindFunction, New: func() Object { return ctor() }})
}

// register panics on duplicates: registration happens from init functions and
// a collision is a schema bug.
func (r *Registry) register(c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.constructors[c.ID]; exists {
		panic(fmt.Sprintf("tl: %v: %#08x used by %s and %s", ErrDuplicateConstructorID, uint32(c.ID), existing.Name, c.Name))
	}
	r.constructors[c.ID] = c
	r.names[c.Name] = c.ID
}

// Lookup finds a constructor by id.
func (r *Registry) Lookup(id int32) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.constructors[id]
	return c, exists
}

// LookupName finds a constructor by name.
func (r *Registry) LookupName(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.names[name]
	if !exists {
		return Constructor{}, false
	}
	return r.constructors[id], true
}

// List returns all constructors of the given kind sorted by name.
func (r *Registry) List(kind Kind) []Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Constructor
	for _, c := range r.constructors {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
