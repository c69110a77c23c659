package container

import (
	"errors"
	"fmt"
	"io/fs"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// DefaultDefinitionCacheSize bounds the plan cache enabled by EnableDefinitionCache.
const DefaultDefinitionCacheSize = 256

// ── Builder ───────────────────────────────────────────────────────────────────

// Builder collects definitions and container settings, then builds a Container.
//
//	b := container.NewBuilder(classes, container.WithLogger(log))
//	b.AddDefinitions(container.DefinitionSet{
//	    "mailer": container.Autowire(container.KeyOf[*Mailer]()),
//	})
//	c, err := b.Build()
type Builder struct {
	registry *Registry
	logger   zerolog.Logger
	fs       afero.Fs

	definitions     DefinitionSet
	compileDir      string
	definitionCache bool
	cacheSize       int
	autowiring      bool
	writeProxies    bool
	proxyDir        string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used by the builder and the built container.
func WithLogger(logger zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithFs sets the filesystem holding compiled artifacts and the proxy directory.
func WithFs(fs afero.Fs) BuilderOption {
	return func(b *Builder) { b.fs = fs }
}

// WithDefinitionCacheSize overrides DefaultDefinitionCacheSize.
func WithDefinitionCacheSize(size int) BuilderOption {
	return func(b *Builder) { b.cacheSize = size }
}

// NewBuilder creates a builder resolving classes from registry. A nil registry
// is replaced by an empty one.
func NewBuilder(registry *Registry, opts ...BuilderOption) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	b := &Builder{
		registry:    registry,
		logger:      zerolog.Nop(),
		fs:          afero.NewOsFs(),
		definitions: make(DefinitionSet),
		cacheSize:   DefaultDefinitionCacheSize,
		autowiring:  true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnableCompilation makes Build persist definitions to CompiledPath(dir), or
// load them from there when the artifact already exists.
func (b *Builder) EnableCompilation(dir string) {
	b.compileDir = dir
}

// EnableDefinitionCache memoizes reflected construction plans.
func (b *Builder) EnableDefinitionCache() {
	b.definitionCache = true
}

// UseAutowiring toggles implicit resolution of registered classes that have no entry.
func (b *Builder) UseAutowiring(enabled bool) {
	b.autowiring = enabled
}

// WriteProxiesToFile sets the proxy directory, created at build time.
func (b *Builder) WriteProxiesToFile(enabled bool, dir string) {
	b.writeProxies = enabled
	b.proxyDir = dir
}

// AddDefinitions merges defs into the builder; later additions win.
func (b *Builder) AddDefinitions(defs DefinitionSet) {
	for name, def := range defs {
		b.definitions[name] = def
	}
}

// Build creates the container.
func (b *Builder) Build() (*Container, error) {
	defs := b.definitions

	if b.compileDir != "" {
		path := CompiledPath(b.compileDir)
		loaded, err := loadCompiled(b.fs, path)
		switch {
		case err == nil:
			b.logger.Debug().Str("path", path).Int("entries", len(loaded)).Msg("loaded compiled container")
			defs = loaded
		case errors.Is(err, fs.ErrNotExist):
			if err := writeCompiled(b.fs, path, defs); err != nil {
				return nil, err
			}
			b.logger.Debug().Str("path", path).Int("entries", len(defs)).Msg("compiled container")
		default:
			return nil, fmt.Errorf("load compiled container: %w", err)
		}
	}

	var proxyDir string
	if b.writeProxies && b.proxyDir != "" {
		if err := b.fs.MkdirAll(b.proxyDir, 0o755); err != nil {
			return nil, fmt.Errorf("create proxy directory %s: %w", b.proxyDir, err)
		}
		proxyDir = b.proxyDir
	}

	s := &state{
		registry:   b.registry,
		entries:    make(DefinitionSet, len(defs)+1),
		autowiring: b.autowiring,
		proxyDir:   proxyDir,
		logger:     b.logger,
	}
	if b.definitionCache {
		plans, err := lru.New[string, *plan](b.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create definition cache: %w", err)
		}
		s.plans = plans
	}

	logger := b.logger
	s.root = do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Trace().Msgf(format, args...)
		},
	})

	c := &Container{injector: s.root, state: s}
	for _, name := range defs.Names() {
		c.provide(name, defs[name])
	}
	if _, ok := defs[selfKey]; !ok {
		c.provide(selfKey, Value(c))
	}

	b.logger.Debug().
		Int("entries", len(s.entries)).
		Bool("autowiring", s.autowiring).
		Bool("definition_cache", s.plans != nil).
		Msg("container built")
	return c, nil
}
