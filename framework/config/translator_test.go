package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/di-config/framework/config"
	"github.com/km-arc/di-config/framework/container"
)

// ── builder mock ──────────────────────────────────────────────────────────────

type builderMock struct{ mock.Mock }

func (m *builderMock) EnableCompilation(dir string)                { m.Called(dir) }
func (m *builderMock) EnableDefinitionCache()                      { m.Called() }
func (m *builderMock) UseAutowiring(enabled bool)                  { m.Called(enabled) }
func (m *builderMock) AddDefinitions(defs container.DefinitionSet) { m.Called(defs) }
func (m *builderMock) WriteProxiesToFile(enabled bool, dir string) { m.Called(enabled, dir) }

func newBuilderMock() *builderMock {
	b := &builderMock{}
	b.On("AddDefinitions", mock.Anything).Maybe()
	b.On("UseAutowiring", mock.Anything).Maybe()
	return b
}

// ── ConfigureContainer ────────────────────────────────────────────────────────

func TestConfigureContainer_EnableCache(t *testing.T) {
	b := newBuilderMock()
	b.On("EnableDefinitionCache").Once()

	cfg := config.New(config.RawConfig{config.KeyEnableCacheDefinition: true})
	require.NoError(t, cfg.ConfigureContainer(b))

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "EnableCompilation", mock.Anything)
	b.AssertNotCalled(t, "WriteProxiesToFile", mock.Anything, mock.Anything)
}

func TestConfigureContainer_WeaklyTypedCacheFlag(t *testing.T) {
	cases := map[string]struct {
		value   any
		enabled bool
	}{
		"string one":   {"1", true},
		"int one":      {1, true},
		"string zero":  {"0", false},
		"empty string": {"", false},
		"false":        {false, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := newBuilderMock()
			b.On("EnableDefinitionCache").Maybe()

			cfg := config.New(config.RawConfig{config.KeyEnableCacheDefinition: tc.value})
			require.NoError(t, cfg.ConfigureContainer(b))

			if tc.enabled {
				b.AssertCalled(t, "EnableDefinitionCache")
			} else {
				b.AssertNotCalled(t, "EnableDefinitionCache")
			}
		})
	}
}

func TestConfigureContainer_Autowiring(t *testing.T) {
	cases := map[string]struct {
		raw  config.RawConfig
		want bool
	}{
		"default":  {config.RawConfig{}, true},
		"disabled": {config.RawConfig{config.KeyUseAutowire: false}, false},
		"null":     {config.RawConfig{config.KeyUseAutowire: nil}, true},
		"string":   {config.RawConfig{config.KeyUseAutowire: "false"}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := &builderMock{}
			b.On("AddDefinitions", mock.Anything).Once()
			b.On("UseAutowiring", tc.want).Once()

			require.NoError(t, config.New(tc.raw).ConfigureContainer(b))
			b.AssertExpectations(t)
		})
	}
}

func TestConfigureContainer_CompilationWithoutArtifact(t *testing.T) {
	b := newBuilderMock()
	b.On("EnableCompilation", "/cache").Once()

	cfg := config.New(config.RawConfig{config.KeyCachePath: "/cache"}, config.WithFs(afero.NewMemMapFs()))
	require.NoError(t, cfg.ConfigureContainer(b))

	b.AssertExpectations(t)
	b.AssertCalled(t, "AddDefinitions", mock.Anything)
}

func TestConfigureContainer_CompiledArtifactSkipsDefinitions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cache", 0o755))
	require.NoError(t, afero.WriteFile(fs, container.CompiledPath("/cache"), []byte("entries: {}\n"), 0o644))

	b := newBuilderMock()
	b.On("EnableCompilation", "/cache").Once()

	cfg := config.New(config.RawConfig{
		config.KeyCachePath: "/cache",
		config.KeyDependencies: map[string]any{
			"services": map[string]any{"a": "b"},
		},
	}, config.WithFs(fs))
	require.NoError(t, cfg.ConfigureContainer(b))

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "AddDefinitions", mock.Anything)
	b.AssertCalled(t, "UseAutowiring", true)
}

func TestConfigureContainer_ProxyPath(t *testing.T) {
	b := newBuilderMock()
	b.On("WriteProxiesToFile", true, "/proxies").Once()

	require.NoError(t, config.New(config.RawConfig{config.KeyProxyPath: "/proxies"}).ConfigureContainer(b))
	b.AssertExpectations(t)
}

func TestConfigureContainer_InvalidFlagType(t *testing.T) {
	b := &builderMock{}

	err := config.New(config.RawConfig{config.KeyCachePath: map[string]any{"nested": true}}).ConfigureContainer(b)

	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Empty(t, b.Calls)
}

func TestConfigureContainer_NonMappingDependencies(t *testing.T) {
	b := &builderMock{}

	err := config.New(config.RawConfig{config.KeyDependencies: "oops"}).ConfigureContainer(b)

	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Empty(t, b.Calls)
}

// ── Translate ─────────────────────────────────────────────────────────────────

func translate(t *testing.T, deps map[string]any) container.DefinitionSet {
	t.Helper()
	defs, err := config.New(config.RawConfig{config.KeyDependencies: deps}).Translate()
	require.NoError(t, err)
	return defs
}

func TestTranslate_ConfigEntryWithoutDependencies(t *testing.T) {
	raw := config.RawConfig{
		"a":                    []any{1, 2, 3},
		"c":                    "d",
		config.KeyDependencies: map[string]any{},
	}

	defs, err := config.New(raw).Translate()
	require.NoError(t, err)

	assert.Equal(t, container.Value(map[string]any{"a": []any{1, 2, 3}, "c": "d"}), defs[config.KeyConfig])
	assert.Contains(t, raw, config.KeyDependencies, "raw configuration must not be modified")
}

func TestTranslate_Services(t *testing.T) {
	instance := &Service{}
	factory := func() string { return "built" }

	defs := translate(t, map[string]any{
		"services": map[string]any{
			"class":    "example.com/app.Service",
			"instance": instance,
			"closure":  factory,
			"number":   42,
		},
	})

	assert.Equal(t, container.Create("example.com/app.Service"), defs["class"])
	assert.Equal(t, container.Value(instance), defs["instance"])
	assert.Equal(t, container.KindFactory, defs["closure"].Kind())
	assert.Equal(t, container.Value(42), defs["number"])
}

func TestTranslate_Factories(t *testing.T) {
	defs := translate(t, map[string]any{
		"factories": map[string]any{"mailer": "example.com/app.MailerFactory"},
	})

	assert.Equal(t, container.FactoryOf("example.com/app.MailerFactory"), defs["mailer"])
}

func TestTranslate_InvokablesDualRegistration(t *testing.T) {
	defs := translate(t, map[string]any{
		"invokables": map[string]any{"mailer": "example.com/app.Mailer"},
	})

	assert.Equal(t, container.Create("example.com/app.Mailer"), defs["mailer"])
	assert.Equal(t, container.Get("mailer"), defs["example.com/app.Mailer"])
}

func TestTranslate_InvokablesNumericKeys(t *testing.T) {
	defs := translate(t, map[string]any{
		"invokables": []any{"example.com/app.A", "example.com/app.B"},
	})

	assert.Equal(t, container.Create("example.com/app.A"), defs["example.com/app.A"])
	assert.Equal(t, container.Create("example.com/app.B"), defs["example.com/app.B"])
	assert.NotContains(t, defs, "0")
}

func TestTranslate_InvokableSelfReference(t *testing.T) {
	defs := translate(t, map[string]any{
		"invokables": map[string]any{"example.com/app.A": "example.com/app.A"},
	})

	assert.Equal(t, container.Create("example.com/app.A"), defs["example.com/app.A"])
}

func TestTranslate_InvokableMustBeString(t *testing.T) {
	_, err := config.New(config.RawConfig{
		config.KeyDependencies: map[string]any{"invokables": map[string]any{"x": 1}},
	}).Translate()

	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTranslate_Autowires(t *testing.T) {
	defs := translate(t, map[string]any{
		"autowires": []any{"example.com/app.Repo"},
	})

	assert.Equal(t, container.Autowire("example.com/app.Repo"), defs["example.com/app.Repo"])
}

func TestTranslate_Aliases(t *testing.T) {
	defs := translate(t, map[string]any{
		"aliases": map[string]any{"mail": "mailer", "post": "mail"},
	})

	assert.Equal(t, container.Get("mailer"), defs["mail"])
	assert.Equal(t, container.Get("mail"), defs["post"])
}

func TestTranslate_DelegatorChain(t *testing.T) {
	defs := translate(t, map[string]any{
		"services":   map[string]any{"svc": "example.com/app.Service"},
		"delegators": map[string]any{"svc": []any{"example.com/app.D1", "example.com/app.D2"}},
	})

	assert.Equal(t, &container.DelegatorDefinition{
		Name: "svc", Previous: "svc.delegated#1", Delegator: "example.com/app.D2",
	}, defs["svc"])
	assert.Equal(t, &container.DelegatorDefinition{
		Name: "svc", Previous: "svc.delegated#0", Delegator: "example.com/app.D1",
	}, defs["svc.delegated#1"])
	assert.Equal(t, container.Create("example.com/app.Service"), defs["svc.delegated#0"])
}

func TestTranslate_DelegatorKeysSkipExistingEntries(t *testing.T) {
	defs := translate(t, map[string]any{
		"services": map[string]any{
			"svc":             "example.com/app.Service",
			"svc.delegated#0": "example.com/app.Other",
		},
		"delegators": map[string]any{"svc": []any{"example.com/app.D1"}},
	})

	assert.Equal(t, container.Create("example.com/app.Other"), defs["svc.delegated#0"])
	assert.Equal(t, container.Create("example.com/app.Service"), defs["svc.delegated#1"])
	assert.Equal(t, "svc.delegated#1", defs["svc"].(*container.DelegatorDefinition).Previous)
}

func TestTranslate_DelegatorForUndefinedEntry(t *testing.T) {
	defs := translate(t, map[string]any{
		"delegators": map[string]any{"ghost": []any{"example.com/app.D1"}},
	})

	assert.Equal(t, container.Value(nil), defs["ghost.delegated#0"])
}

func TestTranslate_DelegatorsMustBeList(t *testing.T) {
	_, err := config.New(config.RawConfig{
		config.KeyDependencies: map[string]any{"delegators": map[string]any{"svc": "example.com/app.D1"}},
	}).Translate()

	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTranslate_NonMappingSectionIgnored(t *testing.T) {
	defs := translate(t, map[string]any{
		"services": "oops",
		"aliases":  map[string]any{"a": "b"},
	})

	assert.Len(t, defs, 2)
	assert.Contains(t, defs, "a")
}

func TestTranslate_LaterSectionWins(t *testing.T) {
	defs := translate(t, map[string]any{
		"services": map[string]any{"x": "example.com/app.Service"},
		"aliases":  map[string]any{"x": "y"},
	})

	assert.Equal(t, container.Get("y"), defs["x"])
}

func TestTranslate_Repeatable(t *testing.T) {
	cfg := config.New(config.RawConfig{config.KeyDependencies: map[string]any{
		"services":   map[string]any{"svc": "example.com/app.Service"},
		"delegators": map[string]any{"svc": []any{"example.com/app.D1"}},
	}})

	first, err := cfg.Translate()
	require.NoError(t, err)
	second, err := cfg.Translate()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTranslate_YAMLShapedInput(t *testing.T) {
	raw, err := config.Decode([]byte(`
dependencies:
  invokables:
    - example.com/app.A
  aliases:
    a: example.com/app.A
  delegators:
    a:
      - example.com/app.D1
`))
	require.NoError(t, err)

	defs, err := config.New(raw).Translate()
	require.NoError(t, err)

	assert.Equal(t, container.Create("example.com/app.A"), defs["example.com/app.A"])
	assert.Equal(t, container.Get("example.com/app.A"), defs["a.delegated#0"])
}
