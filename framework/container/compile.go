package container

import (
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// CompiledFileName is the artifact written into the compilation directory.
const CompiledFileName = "CompiledContainer.yaml"

// CompiledPath returns the location of the compiled artifact inside dir.
func CompiledPath(dir string) string {
	return filepath.Join(dir, CompiledFileName)
}

type compiledFile struct {
	Entries map[string]compiledEntry `yaml:"entries"`
}

type compiledEntry struct {
	Kind     Kind   `yaml:"kind"`
	Class    string `yaml:"class,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Previous string `yaml:"previous,omitempty"`
	Value    any    `yaml:"value"`
}

// ── Write ─────────────────────────────────────────────────────────────────────

func writeCompiled(fs afero.Fs, path string, defs DefinitionSet) error {
	file := compiledFile{Entries: make(map[string]compiledEntry, len(defs))}
	for _, name := range defs.Names() {
		entry, err := compileEntry(name, defs[name])
		if err != nil {
			return err
		}
		file.Entries[name] = entry
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal compiled container: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create compilation directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fs, dir, "CompiledContainer-*.tmp")
	if err != nil {
		return fmt.Errorf("write compiled container: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmp.Name())
		return fmt.Errorf("write compiled container: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmp.Name())
		return fmt.Errorf("write compiled container: %w", err)
	}
	if err := fs.Rename(tmp.Name(), path); err != nil {
		_ = fs.Remove(tmp.Name())
		return fmt.Errorf("write compiled container: %w", err)
	}
	return nil
}

func compileEntry(name string, def Definition) (compiledEntry, error) {
	switch d := def.(type) {
	case *ValueDefinition:
		if !compilable(reflect.ValueOf(d.Value)) {
			return compiledEntry{}, fmt.Errorf("%w: entry [%s] holds a %T value", ErrNotCompilable, name, d.Value)
		}
		return compiledEntry{Kind: KindValue, Value: d.Value}, nil
	case *CreateDefinition:
		return compiledEntry{Kind: KindCreate, Class: d.Class}, nil
	case *AutowireDefinition:
		return compiledEntry{Kind: KindAutowire, Class: d.Class}, nil
	case *ReferenceDefinition:
		return compiledEntry{Kind: KindReference, Target: d.Target}, nil
	case *FactoryDefinition:
		s, ok := d.Factory.(string)
		if !ok {
			return compiledEntry{}, fmt.Errorf("%w: entry [%s] uses a %T factory", ErrNotCompilable, name, d.Factory)
		}
		return compiledEntry{Kind: KindFactory, Target: s}, nil
	case *DelegatorDefinition:
		s, ok := d.Delegator.(string)
		if !ok {
			return compiledEntry{}, fmt.Errorf("%w: entry [%s] uses a %T delegator", ErrNotCompilable, name, d.Delegator)
		}
		return compiledEntry{Kind: KindDelegator, Class: s, Name: d.Name, Previous: d.Previous}, nil
	}
	return compiledEntry{}, fmt.Errorf("%w: entry [%s] has unsupported definition %T", ErrNotCompilable, name, def)
}

// compilable reports whether v survives a YAML round trip as plain data.
func compilable(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Interface:
		return v.IsNil() || compilable(v.Elem())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !compilable(v.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return false
		}
		iter := v.MapRange()
		for iter.Next() {
			if !compilable(iter.Value()) {
				return false
			}
		}
		return true
	}
	return false
}

// ── Load ──────────────────────────────────────────────────────────────────────

func loadCompiled(fs afero.Fs, path string) (DefinitionSet, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var file compiledFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode compiled container %s: %w", path, err)
	}

	defs := make(DefinitionSet, len(file.Entries))
	for name, e := range file.Entries {
		switch e.Kind {
		case KindValue:
			defs[name] = Value(e.Value)
		case KindCreate:
			defs[name] = Create(e.Class)
		case KindAutowire:
			defs[name] = Autowire(e.Class)
		case KindReference:
			defs[name] = Get(e.Target)
		case KindFactory:
			defs[name] = FactoryOf(e.Target)
		case KindDelegator:
			defs[name] = &DelegatorDefinition{Name: e.Name, Previous: e.Previous, Delegator: e.Class}
		default:
			return nil, fmt.Errorf("decode compiled container %s: entry [%s] has unknown kind %q", path, name, e.Kind)
		}
	}
	return defs, nil
}
