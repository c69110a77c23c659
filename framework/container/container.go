package container

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves entries produced by a DefinitionSet.
//
// Entries are lazy shared services of a samber/do root scope: each definition
// is resolved at most once and the result is reused. A Container handed to a
// factory or delegator is bound to the resolution in progress, so circular
// references are reported instead of deadlocking.
type Container struct {
	injector do.Injector
	state    *state
}

// state is shared by the root container and every resolution-bound copy.
type state struct {
	mu sync.RWMutex

	root       *do.RootScope
	registry   *Registry
	entries    DefinitionSet
	autowiring bool
	plans      *lru.Cache[string, *plan]
	proxyDir   string
	logger     zerolog.Logger
}

// selfKey is the entry under which the container registers itself.
var selfKey = KeyOf[*Container]()

// ── Lookup ────────────────────────────────────────────────────────────────────

// Get resolves an entry by name.
//
//	mailer, err := c.Get("mailer")
//
// Unknown names fail with ErrNotFound unless autowiring is enabled and the name
// is a registered class, in which case an autowire rule is added on the fly.
// Errors returned by factories and delegators are passed through unchanged.
func (c *Container) Get(name string) (any, error) {
	if !c.registered(name) {
		if err := c.autoRegister(name); err != nil {
			return nil, err
		}
	}
	return do.InvokeNamed[any](c.injector, name)
}

// Has reports whether Get can resolve name: an entry exists, or autowiring is
// enabled and name is a registered class.
func (c *Container) Has(name string) bool {
	if c.registered(name) {
		return true
	}
	return c.state.autowiring && c.state.registry.Has(name)
}

// Set registers a pre-built value, replacing any existing entry.
//
//	c.Set("clock", fakeClock)
func (c *Container) Set(name string, value any) {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		do.OverrideNamedValue[any](s.root, name, value)
		s.entries[name] = Value(value)
		return
	}
	c.provide(name, Value(value))
}

// KnownEntryNames returns every registered entry name in lexical order.
func (c *Container) KnownEntryNames() []string {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.entries.Names()
}

// Definition returns the definition registered under name.
func (c *Container) Definition(name string) (Definition, bool) {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	def, ok := c.state.entries[name]
	return def, ok
}

// Autowiring reports whether unregistered classes are resolved implicitly.
func (c *Container) Autowiring() bool { return c.state.autowiring }

// ProxyDirectory returns the directory configured with WriteProxiesToFile, or "".
func (c *Container) ProxyDirectory() string { return c.state.proxyDir }

// Registry returns the class registry the container builds classes from.
func (c *Container) Registry() *Registry { return c.state.registry }

// Close shuts down every entry implementing one of samber/do's shutdowner
// interfaces.
func (c *Container) Close() error {
	report := c.state.root.Shutdown()
	if report == nil || report.Succeed {
		return nil
	}
	return report
}

// ── Registration ──────────────────────────────────────────────────────────────

func (c *Container) registered(name string) bool {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	_, ok := c.state.entries[name]
	return ok
}

// autoRegister adds an autowire rule for a registered class.
func (c *Container) autoRegister(name string) error {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return nil
	}
	if !s.autowiring || !s.registry.Has(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.logger.Debug().Str("entry", name).Msg("autowiring unregistered class")
	c.provide(name, Autowire(name))
	return nil
}

// provide registers def with the root scope. Callers hold state.mu or own the
// container exclusively.
func (c *Container) provide(name string, def Definition) {
	s := c.state
	s.entries[name] = def

	if v, ok := def.(*ValueDefinition); ok {
		do.ProvideNamedValue[any](s.root, name, v.Value)
		return
	}
	do.ProvideNamed[any](s.root, name, func(i do.Injector) (any, error) {
		return def.Resolve(&Container{injector: i, state: s})
	})
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve gets name and asserts its type.
//
//	mailer, err := container.Resolve[*Mailer](c, "mailer")
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	instance, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] resolved to %T, not %T", ErrTypeMismatch, name, instance, zero)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, name string) T {
	typed, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return typed
}
