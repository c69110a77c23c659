package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ── Class ─────────────────────────────────────────────────────────────────────

// Class is a constructible type known to the container under an identifier.
type Class struct {
	Name string
	Type reflect.Type

	ctor reflect.Value
}

// HasConstructor reports whether the class was registered with a constructor.
func (cl *Class) HasConstructor() bool { return cl.ctor.IsValid() }

// newInstance returns a fresh zero value: *T for pointer classes, T otherwise.
func (cl *Class) newInstance() any {
	if cl.Type.Kind() == reflect.Pointer {
		return reflect.New(cl.Type.Elem()).Interface()
	}
	return reflect.New(cl.Type).Elem().Interface()
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry maps class identifiers to Go types. It replaces the class name
// lookup a configuration refers to ("services", "invokables", "autowires").
//
//	classes := container.NewRegistry()
//	container.RegisterType[*Mailer](classes)               // "example.com/app.Mailer"
//	container.MustRegisterConstructor(classes, NewUserManager)
//	classes.RegisterNamed("mailer.smtp", NewSMTPMailer)
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Register adds a class under name. ctor may be nil; otherwise it must be a
// function returning a value assignable to typ, optionally followed by an error.
func (r *Registry) Register(name string, typ reflect.Type, ctor any) error {
	if name == "" {
		return errors.New("container: class name must not be empty")
	}
	if typ == nil {
		return fmt.Errorf("container: class [%s] has no type", name)
	}
	if typ.Kind() == reflect.Interface {
		return fmt.Errorf("container: class [%s] is an interface and cannot be constructed", name)
	}

	cl := &Class{Name: name, Type: typ}
	if ctor != nil {
		fn := reflect.ValueOf(ctor)
		if err := validateConstructor(fn.Type()); err != nil {
			return fmt.Errorf("container: class [%s]: %w", name, err)
		}
		if out := fn.Type().Out(0); !out.AssignableTo(typ) {
			return fmt.Errorf("container: class [%s]: constructor returns %s, not %s", name, out, typ)
		}
		cl.ctor = fn
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = cl
	return nil
}

// RegisterNamed registers ctor under a custom identifier; the class type is the
// constructor's first result.
func (r *Registry) RegisterNamed(name string, ctor any) error {
	t := reflect.TypeOf(ctor)
	if t == nil || t.Kind() != reflect.Func {
		return fmt.Errorf("container: class [%s]: constructor must be a function, got %T", name, ctor)
	}
	if err := validateConstructor(t); err != nil {
		return fmt.Errorf("container: class [%s]: %w", name, err)
	}
	return r.Register(name, t.Out(0), ctor)
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cl, ok := r.classes[name]
	return cl, ok
}

// Has reports whether name is a registered class.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns all registered identifiers in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegisterType registers T under its TypeKey with zero-value construction and
// returns the identifier.
//
//	name := container.RegisterType[*Service](classes) // "example.com/app.Service"
func RegisterType[T any](r *Registry) string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	name := typeKey(t)
	if err := r.Register(name, t, nil); err != nil {
		panic(err)
	}
	return name
}

// RegisterConstructor registers ctor under the TypeKey of its result type.
func RegisterConstructor(r *Registry, ctor any) (string, error) {
	t := reflect.TypeOf(ctor)
	if t == nil || t.Kind() != reflect.Func {
		return "", fmt.Errorf("container: constructor must be a function, got %T", ctor)
	}
	if err := validateConstructor(t); err != nil {
		return "", fmt.Errorf("container: %w", err)
	}
	name := typeKey(t.Out(0))
	return name, r.Register(name, t.Out(0), ctor)
}

// MustRegisterConstructor is like RegisterConstructor but panics on error.
func MustRegisterConstructor(r *Registry, ctor any) string {
	name, err := RegisterConstructor(r, ctor)
	if err != nil {
		panic(err)
	}
	return name
}

func validateConstructor(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return fmt.Errorf("variadic constructor %s is not supported", t)
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return fmt.Errorf("second result of %s must be of type error", t)
		}
	default:
		return fmt.Errorf("constructor %s must return a value and an optional error", t)
	}
	return nil
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, the identifier used for
// classes and for autowired parameters.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "example.com/app.UserRepository"
func TypeKey(v any) string {
	return typeKey(reflect.TypeOf(v))
}

// KeyOf is the generic form of TypeKey.
//
//	key := container.KeyOf[*Mailer]()
func KeyOf[T any]() string {
	return typeKey(reflect.TypeOf((*T)(nil)).Elem())
}

func typeKey(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
