package providers

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/km-arc/di-config/framework/config"
)

// ── MapProvider ───────────────────────────────────────────────────────────────

// MapProvider contributes a configuration built in code. Use it for entries
// that cannot live in a file, such as pre-built instances and closures.
//
//	app.Register(&providers.MapProvider{Values: config.RawConfig{
//	    "dependencies": map[string]any{
//	        "services": map[string]any{"clock": realClock},
//	    },
//	}})
type MapProvider struct {
	Values config.RawConfig
}

func (p *MapProvider) Config() (config.RawConfig, error) {
	return config.Merge(nil, p.Values), nil
}

// ── FileProvider ──────────────────────────────────────────────────────────────

// FileProvider loads every YAML or JSON file matching Pattern, in lexical
// order. A pattern matching nothing contributes an empty configuration.
//
//	app.Register(&providers.FileProvider{Pattern: "config/autoload/*.yaml"})
type FileProvider struct {
	Fs      afero.Fs // default: the OS filesystem
	Pattern string
}

func (p *FileProvider) Config() (config.RawConfig, error) {
	fs := p.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	matches, err := afero.Glob(fs, p.Pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", p.Pattern, err)
	}
	sort.Strings(matches)

	merged := map[string]any{}
	for _, path := range matches {
		raw, err := config.LoadFile(fs, path)
		if err != nil {
			return nil, err
		}
		merged = config.Merge(merged, raw)
	}
	return config.RawConfig(merged), nil
}

// ── EnvProvider ───────────────────────────────────────────────────────────────

// EnvProvider maps environment variables onto the container flags. Files are
// loaded with godotenv first; variables already set take precedence.
//
// Variables:
//   - DI_CACHE_PATH              → di_cache_path
//   - DI_PROXY_PATH              → di_proxy_path
//   - DI_ENABLE_CACHE_DEFINITION → enable_cache_definition
//   - DI_USE_AUTOWIRE            → use_autowire
//
// Unset variables leave their flag untouched.
type EnvProvider struct {
	EnvFiles []string // default: ".env"
}

// EnvKeys maps environment variables to configuration keys.
var EnvKeys = map[string]string{
	"DI_CACHE_PATH":              config.KeyCachePath,
	"DI_PROXY_PATH":              config.KeyProxyPath,
	"DI_ENABLE_CACHE_DEFINITION": config.KeyEnableCacheDefinition,
	"DI_USE_AUTOWIRE":            config.KeyUseAutowire,
}

func (p *EnvProvider) Config() (config.RawConfig, error) {
	files := p.EnvFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		// Non-fatal: the file may not exist outside development.
		_ = godotenv.Load(file)
	}

	raw := config.RawConfig{}
	for env, key := range EnvKeys {
		if v := config.Get(env, ""); v != "" {
			raw[key] = v
		}
	}
	return raw, nil
}
