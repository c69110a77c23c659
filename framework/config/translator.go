package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/km-arc/di-config/framework/container"
)

// ContainerBuilder is the part of container.Builder a Config drives.
type ContainerBuilder interface {
	EnableCompilation(dir string)
	EnableDefinitionCache()
	UseAutowiring(enabled bool)
	WriteProxiesToFile(enabled bool, dir string)
	AddDefinitions(defs container.DefinitionSet)
}

var _ ContainerBuilder = (*container.Builder)(nil)

// ── Config ────────────────────────────────────────────────────────────────────

// Config translates a RawConfig into container definitions.
//
//	cfg := config.New(raw, config.WithLogger(log))
//	b := container.NewBuilder(classes)
//	if err := cfg.ConfigureContainer(b); err != nil { ... }
//	c, err := b.Build()
type Config struct {
	raw    RawConfig
	logger zerolog.Logger
	fs     afero.Fs

	// delegated counts the keys allocated per entry name during a translation.
	delegated map[string]int
}

// Option configures a Config.
type Option func(*Config)

// WithLogger sets the logger used during translation.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithFs sets the filesystem probed for a compiled container.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) { c.fs = fs }
}

// New wraps raw. raw is only read.
func New(raw RawConfig, opts ...Option) *Config {
	c := &Config{
		raw:    raw,
		logger: zerolog.Nop(),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Raw returns the wrapped configuration.
func (c *Config) Raw() RawConfig { return c.raw }

// Options decodes the container flags.
func (c *Config) Options() (Options, error) { return DecodeOptions(c.raw) }

// ConfigureContainer applies the configuration to b.
//
// When di_cache_path points at an existing compiled container, no definitions
// are added: the builder loads the compiled ones instead.
func (c *Config) ConfigureContainer(b ContainerBuilder) error {
	opts, err := c.Options()
	if err != nil {
		return err
	}

	compiled := false
	if opts.CachePath != "" {
		b.EnableCompilation(opts.CachePath)
		path := container.CompiledPath(opts.CachePath)
		compiled, err = afero.Exists(c.fs, path)
		if err != nil {
			return fmt.Errorf("probe compiled container %s: %w", path, err)
		}
		if compiled {
			c.logger.Debug().Str("path", path).Msg("compiled container found, skipping definitions")
		}
	}

	if !compiled {
		defs, err := c.Translate()
		if err != nil {
			return err
		}
		b.AddDefinitions(defs)
	}

	b.UseAutowiring(opts.Autowiring())
	if opts.EnableCacheDefinition {
		b.EnableDefinitionCache()
	}
	if opts.ProxyPath != "" {
		b.WriteProxiesToFile(true, opts.ProxyPath)
	}
	return nil
}

// ── Translation ───────────────────────────────────────────────────────────────

// Translate builds the definitions described by the dependencies key. The raw
// configuration without that key is registered as the "config" entry.
//
// Sections are applied in a fixed order: services, factories, invokables,
// autowires, aliases, delegators. A name defined by several sections keeps the
// definition of the last one.
func (c *Config) Translate() (container.DefinitionSet, error) {
	deps, err := c.dependencies()
	if err != nil {
		return nil, err
	}

	c.delegated = make(map[string]int)
	defs := container.DefinitionSet{KeyConfig: container.Value(c.literal())}

	steps := []struct {
		section string
		apply   func(container.DefinitionSet, []entry) error
	}{
		{SectionServices, c.services},
		{SectionFactories, c.factories},
		{SectionInvokables, c.invokables},
		{SectionAutowires, c.autowires},
		{SectionAliases, c.aliases},
		{SectionDelegators, c.delegators},
	}
	for _, step := range steps {
		if err := step.apply(defs, c.section(deps, step.section)); err != nil {
			return nil, err
		}
	}

	c.logger.Debug().Int("definitions", len(defs)).Msg("configuration translated")
	return defs, nil
}

func (c *Config) services(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		switch v := e.value.(type) {
		case string:
			c.define(defs, SectionServices, e.key, container.Create(v))
		default:
			if isFunc(v) {
				c.define(defs, SectionServices, e.key, container.FactoryOf(v))
				continue
			}
			c.define(defs, SectionServices, e.key, container.Value(v))
		}
	}
	return nil
}

func (c *Config) factories(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		c.define(defs, SectionFactories, e.key, container.FactoryOf(e.value))
	}
	return nil
}

func (c *Config) invokables(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		class, err := identifier(SectionInvokables, e)
		if err != nil {
			return err
		}
		name := e.key
		if e.numeric {
			name = class
		}
		c.define(defs, SectionInvokables, name, container.Create(class))
		if name != class {
			c.define(defs, SectionInvokables, class, container.Get(name))
		}
	}
	return nil
}

func (c *Config) autowires(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		class, err := identifier(SectionAutowires, e)
		if err != nil {
			return err
		}
		c.define(defs, SectionAutowires, class, container.Autowire(class))
	}
	return nil
}

func (c *Config) aliases(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		target, err := identifier(SectionAliases, e)
		if err != nil {
			return err
		}
		c.define(defs, SectionAliases, e.key, container.Get(target))
	}
	return nil
}

// delegators rewrites each decorated entry: its current definition moves to a
// fresh key and a delegator definition wrapping that key takes its place. The
// last listed delegator ends up outermost.
func (c *Config) delegators(defs container.DefinitionSet, entries []entry) error {
	for _, e := range entries {
		list := reflect.ValueOf(e.value)
		if e.value == nil || (list.Kind() != reflect.Slice && list.Kind() != reflect.Array) {
			return fmt.Errorf("%w: delegators of %q must be a list, got %T", ErrInvalidConfig, e.key, e.value)
		}

		name := e.key
		for i := 0; i < list.Len(); i++ {
			delegator := list.Index(i).Interface()

			current, ok := defs[name]
			if !ok {
				c.logger.Warn().Str("entry", name).Msg("delegator registered for an undefined entry")
				current = container.Value(nil)
			}
			previous := c.allocate(defs, name)
			defs[previous] = current
			defs[name] = &container.DelegatorDefinition{
				Name:      name,
				Previous:  previous,
				Delegator: delegator,
			}
		}
	}
	return nil
}

// allocate returns a key for a renamed definition of name that is not in defs.
func (c *Config) allocate(defs container.DefinitionSet, name string) string {
	for {
		n := c.delegated[name]
		c.delegated[name] = n + 1
		key := name + ".delegated#" + strconv.Itoa(n)
		if _, taken := defs[key]; !taken {
			return key
		}
	}
}

func (c *Config) define(defs container.DefinitionSet, section, name string, def container.Definition) {
	if existing, ok := defs[name]; ok {
		c.logger.Debug().
			Str("entry", name).
			Str("section", section).
			Str("previous", container.Describe(existing)).
			Msg("definition overridden")
	}
	defs[name] = def
}

// ── Raw access ────────────────────────────────────────────────────────────────

func (c *Config) dependencies() (map[string]any, error) {
	v, ok := c.raw[KeyDependencies]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	deps, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidConfig, KeyDependencies, v)
	}
	return deps, nil
}

// literal returns a shallow copy of the raw configuration without dependencies.
func (c *Config) literal() map[string]any {
	out := make(map[string]any, len(c.raw))
	for k, v := range c.raw {
		if k == KeyDependencies {
			continue
		}
		out[k] = v
	}
	return out
}

// section returns the entries of a dependencies sub-section. Absent sections
// and sections that are neither mappings nor lists are empty.
func (c *Config) section(deps map[string]any, name string) []entry {
	v, ok := deps[name]
	if !ok || v == nil {
		return nil
	}
	entries, ok := entriesOf(v)
	if !ok {
		c.logger.Warn().Str("section", name).Str("type", fmt.Sprintf("%T", v)).Msg("ignoring section that is not a mapping or list")
		return nil
	}
	return entries
}

// entry is one item of a section. numeric is set for list items and integer
// keys, which carry no entry name.
type entry struct {
	key     string
	numeric bool
	value   any
}

// entriesOf flattens a mapping (sorted by key) or a list (in order).
func entriesOf(v any) ([]entry, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]entry, rv.Len())
		for i := range out {
			out[i] = entry{key: strconv.Itoa(i), numeric: true, value: rv.Index(i).Interface()}
		}
		return out, true
	case reflect.Map:
		m, _ := asMap(v)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, len(keys))
		for i, k := range keys {
			_, err := strconv.Atoi(k)
			out[i] = entry{key: k, numeric: err == nil, value: m[k]}
		}
		return out, true
	}
	return nil, false
}

// asMap converts any map to map[string]any, formatting non-string keys.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawConfig:
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

func identifier(section string, e entry) (string, error) {
	s, ok := e.value.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s entry %q must be a non-empty string, got %T", ErrInvalidConfig, section, e.key, e.value)
	}
	return s, nil
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}
