package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/km-arc/di-config/framework/config"
	"github.com/km-arc/di-config/framework/container"
	kmhttp "github.com/km-arc/di-config/framework/http"
)

// ErrNotBooted is returned when the container is needed before Boot.
var ErrNotBooted = errors.New("application not booted")

// Booter is implemented by providers that need the built container,
// for example to Set runtime values or resolve eager entries.
type Booter interface {
	Boot(c *container.Container) error
}

// Application aggregates configuration providers and owns the container
// built from them.
//
//	application := app.New(classes)
//	application.Register(&providers.FileProvider{Pattern: "config/autoload/*.yaml"})
//	application.Register(&providers.EnvProvider{})
//	if err := application.Boot(); err != nil { ... }
//	mailer, err := container.Resolve[*Mailer](application.Container(), "mailer")
type Application struct {
	classes    *container.Registry
	aggregator *config.Aggregator
	logger     zerolog.Logger
	fs         afero.Fs
	booters    []Booter

	cfg       *config.Config
	container *container.Container
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger handed to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithFs sets the filesystem used for compiled containers and proxies.
func WithFs(fs afero.Fs) Option {
	return func(a *Application) { a.fs = fs }
}

// New creates an application resolving classes from classes.
func New(classes *container.Registry, opts ...Option) *Application {
	a := &Application{
		classes: classes,
		logger:  zerolog.Nop(),
		fs:      afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.aggregator = config.NewAggregator(a.logger)
	return a
}

// Register adds a configuration provider. Providers implementing Booter are
// booted in registration order once the container is built.
func (a *Application) Register(p config.Provider) {
	before := len(a.aggregator.Providers())
	a.aggregator.Register(p)
	if len(a.aggregator.Providers()) == before {
		return
	}
	if b, ok := p.(Booter); ok {
		a.booters = append(a.booters, b)
	}
}

// Boot merges the providers, builds the container and runs the boot hooks.
// Calling Boot again is a no-op.
func (a *Application) Boot() error {
	if a.container != nil {
		return nil
	}

	raw, err := a.aggregator.Merge()
	if err != nil {
		return err
	}
	cfg := config.New(raw, config.WithLogger(a.logger), config.WithFs(a.fs))

	c, err := config.NewContainer(cfg, a.classes)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}

	for _, b := range a.booters {
		if err := b.Boot(c); err != nil {
			_ = c.Close()
			return fmt.Errorf("boot %T: %w", b, err)
		}
	}

	a.cfg = cfg
	a.container = c
	a.logger.Info().
		Int("providers", len(a.aggregator.Providers())).
		Int("entries", len(c.KnownEntryNames())).
		Msg("application booted")
	return nil
}

// Booted reports whether Boot succeeded.
func (a *Application) Booted() bool { return a.container != nil }

// Container returns the built container, or nil before Boot.
func (a *Application) Container() *container.Container { return a.container }

// Config returns the merged configuration, or nil before Boot.
func (a *Application) Config() *config.Config { return a.cfg }

// Handler returns the container inspector.
func (a *Application) Handler() (http.Handler, error) {
	if a.container == nil {
		return nil, ErrNotBooted
	}
	return kmhttp.NewInspector(a.container, a.logger).Handler(), nil
}

// Serve boots the application if needed and serves the inspector on addr
// until ctx is cancelled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if err := a.Boot(); err != nil {
		return err
	}
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", addr).Msg("inspector listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close shuts the container down.
func (a *Application) Close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}
