package config

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// ── Provider ──────────────────────────────────────────────────────────────────

// Provider contributes a configuration fragment.
//
//	type MailProvider struct{}
//
//	func (MailProvider) Config() (config.RawConfig, error) {
//	    return config.RawConfig{
//	        "dependencies": map[string]any{
//	            "autowires": []any{"example.com/mail.Mailer"},
//	        },
//	    }, nil
//	}
type Provider interface {
	Config() (RawConfig, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (RawConfig, error)

// Config calls f.
func (f ProviderFunc) Config() (RawConfig, error) { return f() }

// ── Aggregator ────────────────────────────────────────────────────────────────

// Aggregator merges the fragments of its providers in registration order.
//
// Mappings merge recursively, list items are appended unless already present,
// and any other value replaces the earlier one.
type Aggregator struct {
	providers  []Provider
	registered map[Provider]bool
	logger     zerolog.Logger
}

// NewAggregator creates an empty aggregator.
func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		registered: make(map[Provider]bool),
		logger:     logger,
	}
}

// Register adds a provider. Registering the same comparable provider twice is a
// no-op.
func (a *Aggregator) Register(p Provider) {
	if p == nil {
		return
	}
	if reflect.TypeOf(p).Comparable() {
		if a.registered[p] {
			return
		}
		a.registered[p] = true
	}
	a.providers = append(a.providers, p)
}

// Providers returns the registered providers in order.
func (a *Aggregator) Providers() []Provider { return a.providers }

// Merge collects and merges every provider's fragment.
func (a *Aggregator) Merge() (RawConfig, error) {
	merged := map[string]any{}
	for _, p := range a.providers {
		fragment, err := p.Config()
		if err != nil {
			return nil, fmt.Errorf("config provider %T: %w", p, err)
		}
		merged = Merge(merged, fragment)
		a.logger.Debug().Str("provider", fmt.Sprintf("%T", p)).Int("keys", len(fragment)).Msg("merged configuration")
	}
	return RawConfig(merged), nil
}

// Merge returns the merge of src into dst. Neither argument is modified.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			out[k] = mergeValues(existing, v)
			continue
		}
		out[k] = v
	}
	return out
}

func mergeValues(a, b any) any {
	if am, ok := asMap(a); ok {
		if bm, ok := asMap(b); ok {
			return Merge(am, bm)
		}
		return b
	}
	if al, ok := asList(a); ok {
		if bl, ok := asList(b); ok {
			out := append([]any(nil), al...)
			for _, item := range bl {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return out
		}
	}
	return b
}

func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
