// SPDX-License-Identifier: MPL-2.0

package classpath

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

type (
	// ProviderFunc contributes type definitions to a classpath under assembly.
	ProviderFunc func(b *Builder) error

	// Builder collects the type definitions of one classpath element.
	Builder struct {
		element string
		classes map[string]*Class
	}

	// Class is a named type on the classpath together with the constructor
	// functions its provider registered.
	Class struct {
		name    string
		element string
		typ     reflect.Type
		ctors   []reflect.Value
	}

	// Classpath is an immutable set of named types assembled from provider
	// elements. It is safe for concurrent use.
	Classpath struct {
		elements []string
		classes  map[string]*Class
	}
)

var (
	providersMu sync.RWMutex
	//nolint:gochecknoglobals // Provider registry, populated from init functions.
	providers = make(map[string]ProviderFunc)
)

// RegisterProvider makes a runtime provider available under the given
// element name. It panics if called twice with the same name or with a nil
// provider, like database/sql.Register.
func RegisterProvider(element string, fn ProviderFunc) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if fn == nil {
		panic("classpath: RegisterProvider provider is nil")
	}
	if _, dup := providers[element]; dup {
		panic("classpath: RegisterProvider called twice for element " + element)
	}
	providers[element] = fn
}

// Providers returns the sorted names of all registered elements.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Assemble builds a classpath from the given elements, in order. A type
// defined by an earlier element shadows one of the same name defined later.
func Assemble(elements ...string) (*Classpath, error) {
	cp := &Classpath{
		elements: slices.Clone(elements),
		classes:  make(map[string]*Class),
	}

	for _, element := range elements {
		providersMu.RLock()
		fn, ok := providers[element]
		providersMu.RUnlock()
		if !ok {
			return nil, &ElementNotFoundError{Element: element, Available: Providers()}
		}

		b := &Builder{element: element, classes: make(map[string]*Class)}
		if err := fn(b); err != nil {
			return nil, fmt.Errorf("load classpath element %q: %w", element, err)
		}
		for name, class := range b.classes {
			if _, shadowed := cp.classes[name]; !shadowed {
				cp.classes[name] = class
			}
		}
	}

	return cp, nil
}

// Define registers a type under a fully-qualified name. sample is any value
// of the type (typically a nil pointer); each ctor must be a function
// returning that type, optionally followed by an error.
func (b *Builder) Define(name string, sample any, ctors ...any) error {
	if name == "" {
		return &DefinitionError{Name: name, Reason: "name must not be empty"}
	}
	if sample == nil {
		return &DefinitionError{Name: name, Reason: "sample value must not be nil"}
	}
	if _, dup := b.classes[name]; dup {
		return &DefinitionError{Name: name, Reason: "defined twice in element " + b.element}
	}

	typ := reflect.TypeOf(sample)
	class := &Class{name: name, element: b.element, typ: typ}

	for i, ctor := range ctors {
		fn := reflect.ValueOf(ctor)
		if fn.Kind() != reflect.Func {
			return &DefinitionError{Name: name, Reason: fmt.Sprintf("constructor %d is not a function", i)}
		}
		ft := fn.Type()
		if !returnsInstance(ft, typ) {
			return &DefinitionError{Name: name, Reason: fmt.Sprintf("constructor %d must return %s", i, typ)}
		}
		class.ctors = append(class.ctors, fn)
	}

	b.classes[name] = class
	return nil
}

// Element returns the name of the element being built.
func (b *Builder) Element() string { return b.element }

// Elements returns the element names the classpath was assembled from.
func (cp *Classpath) Elements() []string {
	return slices.Clone(cp.elements)
}

// Names returns the sorted names of all types on the classpath.
func (cp *Classpath) Names() []string {
	names := make([]string, 0, len(cp.classes))
	for name := range cp.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveType looks a type up by fully-qualified name.
func (cp *Classpath) ResolveType(name string) (*Class, error) {
	class, ok := cp.classes[name]
	if !ok {
		return nil, &TypeNotFoundError{Name: name, Elements: cp.Elements()}
	}
	return class, nil
}

// Name returns the fully-qualified name the class was defined under.
func (c *Class) Name() string { return c.name }

// Element returns the classpath element that defined the class.
func (c *Class) Element() string { return c.element }

// Type returns the Go type backing the class.
func (c *Class) Type() reflect.Type { return c.typ }

// String returns the class name.
func (c *Class) String() string { return c.name }

func returnsInstance(ft reflect.Type, typ reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return ft.Out(0) == typ
	case 2:
		return ft.Out(0) == typ && ft.Out(1) == errorType
	default:
		return false
	}
}
