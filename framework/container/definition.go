package container

import (
	"fmt"
	"reflect"
	"sort"
)

// ── Definition kinds ──────────────────────────────────────────────────────────

// Kind identifies how a Definition produces the value of its entry.
type Kind string

const (
	KindValue     Kind = "value"
	KindCreate    Kind = "create"
	KindAutowire  Kind = "autowire"
	KindFactory   Kind = "factory"
	KindReference Kind = "reference"
	KindDelegator Kind = "delegator"
)

// Definition is a rule describing how to produce an entry's value on demand.
// Definitions are registered as lazy shared services: Resolve runs at most once
// per container (values are returned as-is).
type Definition interface {
	Kind() Kind
	Resolve(c *Container) (any, error)
}

// DefinitionSet maps entry names to their definitions.
type DefinitionSet map[string]Definition

// Names returns the entry names in lexical order.
func (s DefinitionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ── Callables ─────────────────────────────────────────────────────────────────

// Factory builds an entry from the container.
//
//	type MailerFactory struct{}
//
//	func (MailerFactory) Create(c *container.Container) (any, error) {
//	    return &Mailer{}, nil
//	}
type Factory interface {
	Create(c *Container) (any, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(c *Container) (any, error)

// Create calls f(c).
func (f FactoryFunc) Create(c *Container) (any, error) { return f(c) }

// Callback resolves the definition a delegator wraps.
type Callback func() (any, error)

// DelegatorFactory decorates the value previously registered under name.
// Calling callback resolves the wrapped definition.
type DelegatorFactory interface {
	Decorate(c *Container, name string, callback Callback) (any, error)
}

// DelegatorFunc adapts a plain function to DelegatorFactory.
type DelegatorFunc func(c *Container, name string, callback Callback) (any, error)

// Decorate calls f(c, name, callback).
func (f DelegatorFunc) Decorate(c *Container, name string, callback Callback) (any, error) {
	return f(c, name, callback)
}

// ── Definitions ───────────────────────────────────────────────────────────────

// ValueDefinition returns a pre-built value unchanged (shared instance).
type ValueDefinition struct {
	Value any
}

func (d *ValueDefinition) Kind() Kind { return KindValue }

func (d *ValueDefinition) Resolve(_ *Container) (any, error) { return d.Value, nil }

// CreateDefinition constructs a registered class without arguments.
type CreateDefinition struct {
	Class string
}

func (d *CreateDefinition) Kind() Kind { return KindCreate }

func (d *CreateDefinition) Resolve(c *Container) (any, error) { return c.create(d.Class) }

// AutowireDefinition constructs a registered class, resolving constructor
// parameters and `inject` tagged fields from the container.
type AutowireDefinition struct {
	Class string
}

func (d *AutowireDefinition) Kind() Kind { return KindAutowire }

func (d *AutowireDefinition) Resolve(c *Container) (any, error) { return c.autowire(d.Class) }

// FactoryDefinition invokes a factory to build the entry.
//
// Factory may be a Factory, a function (parameters are autowired), or a string.
// A string names another entry that must resolve to a callable; when no such
// entry exists it is treated as a class identifier and instantiated.
type FactoryDefinition struct {
	Factory any
}

func (d *FactoryDefinition) Kind() Kind { return KindFactory }

func (d *FactoryDefinition) Resolve(c *Container) (any, error) {
	factory := d.Factory
	if target, ok := factory.(string); ok {
		resolved, err := c.callable(target)
		if err != nil {
			return nil, err
		}
		factory = resolved
	}
	return c.invoke(factory)
}

// ReferenceDefinition forwards resolution to another entry.
type ReferenceDefinition struct {
	Target string
}

func (d *ReferenceDefinition) Kind() Kind { return KindReference }

func (d *ReferenceDefinition) Resolve(c *Container) (any, error) { return c.Get(d.Target) }

// DelegatorDefinition wraps the definition stored under Previous with a decorator.
// Delegator is a DelegatorFactory, a matching function, or a class identifier
// of a type implementing DelegatorFactory.
type DelegatorDefinition struct {
	Name      string
	Previous  string
	Delegator any
}

func (d *DelegatorDefinition) Kind() Kind { return KindDelegator }

func (d *DelegatorDefinition) Resolve(c *Container) (any, error) {
	delegator, err := c.delegator(d.Delegator)
	if err != nil {
		return nil, err
	}
	previous := d.Previous
	callback := func() (any, error) {
		return c.Get(previous)
	}
	return delegator.Decorate(c, d.Name, callback)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Value wraps a pre-built value.
func Value(v any) *ValueDefinition { return &ValueDefinition{Value: v} }

// Create builds class with its zero-argument constructor.
func Create(class string) *CreateDefinition { return &CreateDefinition{Class: class} }

// Autowire builds class resolving its dependencies by type.
func Autowire(class string) *AutowireDefinition { return &AutowireDefinition{Class: class} }

// FactoryOf invokes factory to build the entry.
func FactoryOf(factory any) *FactoryDefinition { return &FactoryDefinition{Factory: factory} }

// Get references another entry.
func Get(target string) *ReferenceDefinition { return &ReferenceDefinition{Target: target} }

// Describe returns a short human readable form of a definition.
func Describe(def Definition) string {
	switch d := def.(type) {
	case *ValueDefinition:
		if d.Value == nil {
			return "value(nil)"
		}
		return fmt.Sprintf("value(%s)", reflect.TypeOf(d.Value))
	case *CreateDefinition:
		return fmt.Sprintf("create(%s)", d.Class)
	case *AutowireDefinition:
		return fmt.Sprintf("autowire(%s)", d.Class)
	case *FactoryDefinition:
		if s, ok := d.Factory.(string); ok {
			return fmt.Sprintf("factory(%s)", s)
		}
		return fmt.Sprintf("factory(%T)", d.Factory)
	case *ReferenceDefinition:
		return fmt.Sprintf("get(%s)", d.Target)
	case *DelegatorDefinition:
		if s, ok := d.Delegator.(string); ok {
			return fmt.Sprintf("delegator(%s -> %s)", s, d.Previous)
		}
		return fmt.Sprintf("delegator(%T -> %s)", d.Delegator, d.Previous)
	default:
		return fmt.Sprintf("%s(%T)", def.Kind(), def)
	}
}
