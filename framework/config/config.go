package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Top-level keys of a RawConfig.
const (
	KeyConfig                = "config"
	KeyDependencies          = "dependencies"
	KeyCachePath             = "di_cache_path"
	KeyProxyPath             = "di_proxy_path"
	KeyEnableCacheDefinition = "enable_cache_definition"
	KeyUseAutowire           = "use_autowire"
)

// Sub-sections of the dependencies key.
const (
	SectionServices   = "services"
	SectionFactories  = "factories"
	SectionInvokables = "invokables"
	SectionAutowires  = "autowires"
	SectionAliases    = "aliases"
	SectionDelegators = "delegators"
)

// ErrInvalidConfig marks a configuration that violates the expected shape.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// RawConfig is an application configuration mapping. Its optional
// "dependencies" key describes the container entries.
//
//	config.RawConfig{
//	    "dependencies": map[string]any{
//	        "invokables": map[string]any{"mailer": "example.com/app.Mailer"},
//	        "aliases":    map[string]any{"mail": "mailer"},
//	    },
//	    "use_autowire": true,
//	}
type RawConfig map[string]any

// ── Options ───────────────────────────────────────────────────────────────────

// Options are the container flags read from the top level of a RawConfig.
type Options struct {
	CachePath             string `mapstructure:"di_cache_path"`
	ProxyPath             string `mapstructure:"di_proxy_path"`
	EnableCacheDefinition bool   `mapstructure:"enable_cache_definition"`
	UseAutowire           *bool  `mapstructure:"use_autowire"`
}

// Autowiring returns use_autowire, true when unset.
func (o Options) Autowiring() bool {
	return o.UseAutowire == nil || *o.UseAutowire
}

// DecodeOptions reads the container flags of raw. Values are weakly typed, so
// "1", 1 and true all enable a flag.
//
// Empty paths (false, 0, "" or "0") leave the matching feature disabled.
// enable_cache_definition is on for any non-empty value other than a string
// spelling false.
func DecodeOptions(raw RawConfig) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}

	flags := make(map[string]any, 4)
	for _, key := range []string{KeyCachePath, KeyProxyPath, KeyEnableCacheDefinition, KeyUseAutowire} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch key {
		case KeyCachePath, KeyProxyPath:
			if empty(v) {
				continue
			}
		case KeyEnableCacheDefinition:
			v = enabled(v)
		}
		flags[key] = v
	}
	if err := decoder.Decode(flags); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return opts, nil
}

// empty reports whether v is unset: nil, false, a zero number, "", "0" or an
// empty list or mapping.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == "" || t == "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func enabled(v any) bool {
	if s, ok := v.(string); ok {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return !empty(v)
}

// ── Environment ───────────────────────────────────────────────────────────────

// Get returns an environment value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetBool returns a bool environment value.
func GetBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
