package tool

import (
	"errors"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/di-config/framework/config"
)

// ErrInvalidDependencies is returned when the dependencies key of a
// configuration is not a mapping.
var ErrInvalidDependencies = errors.New("Configuration dependencies key must be an array")

// Dumper adds classes to the autowires section of a configuration.
type Dumper struct{}

// CreateDependencyConfig returns a copy of raw whose dependencies.autowires
// list contains class exactly once. A missing dependencies key is created and
// an autowires value that is not a list is replaced.
func (Dumper) CreateDependencyConfig(raw config.RawConfig, class string) (config.RawConfig, error) {
	out := make(config.RawConfig, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}

	deps := map[string]any{}
	switch d := raw[config.KeyDependencies].(type) {
	case nil:
	case map[string]any:
		for k, v := range d {
			deps[k] = v
		}
	case config.RawConfig:
		for k, v := range d {
			deps[k] = v
		}
	default:
		return nil, ErrInvalidDependencies
	}

	autowires := listOf(deps[config.SectionAutowires])
	list := make([]any, 0, len(autowires)+1)
	found := false
	for _, item := range autowires {
		if item == class {
			if found {
				continue
			}
			found = true
		}
		list = append(list, item)
	}
	if !found {
		list = append(list, class)
	}

	deps[config.SectionAutowires] = list
	out[config.KeyDependencies] = deps
	return out, nil
}

// listOf returns the items of any slice or array, or nil for other values.
func listOf(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// DumpConfigFile renders raw as a YAML configuration file.
func (Dumper) DumpConfigFile(raw config.RawConfig) ([]byte, error) {
	body, err := yaml.Marshal(map[string]any(raw))
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return append([]byte("# Generated by autowires-config-dumper.\n"), body...), nil
}
