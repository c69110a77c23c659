package config

import (
	"github.com/km-arc/di-config/framework/container"
)

// NewContainer builds a container from cfg, resolving classes from registry.
//
//	c, err := config.NewContainer(config.New(raw), classes)
func NewContainer(cfg *Config, registry *container.Registry, opts ...container.BuilderOption) (*container.Container, error) {
	builderOpts := append([]container.BuilderOption{
		container.WithLogger(cfg.logger),
		container.WithFs(cfg.fs),
	}, opts...)

	b := container.NewBuilder(registry, builderOpts...)
	if err := cfg.ConfigureContainer(b); err != nil {
		return nil, err
	}
	return b.Build()
}
