package core

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeRegistry resolves a loop block's LoopClass name to a Go type.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register binds name to the type of proto (a value or a pointer to one).
func (r *TypeRegistry) Register(name string, proto any) {
	t := reflect.TypeOf(proto)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// Lookup returns the type registered under name.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// New returns a pointer to a fresh zero value of the named type.
func (r *TypeRegistry) New(name string) (reflect.Value, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("loop class %q is not registered", name)
	}
	return reflect.New(t), nil
}

var defaultTypes = NewTypeRegistry()

// RegisterType adds a loop class to the process-wide registry.
func RegisterType(name string, proto any) { defaultTypes.Register(name, proto) }

// DefaultTypeRegistry returns the process-wide registry.
func DefaultTypeRegistry() *TypeRegistry { return defaultTypes }
