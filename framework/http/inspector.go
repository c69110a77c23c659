package http

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/km-arc/di-config/framework/container"
	"github.com/km-arc/di-config/framework/routing"
)

// Inspector exposes a read-only JSON view of a container's entries.
//
//	GET /entries               list every known entry
//	GET /entries?kind=factory  filter by definition kind
//	GET /entries/{name}        describe one entry
//	GET /entries/{name}?resolve=1  also resolve it and report the value type
//	HEAD /entries/{name}       200 when the entry can be resolved, 404 otherwise
type Inspector struct {
	c      *container.Container
	logger zerolog.Logger
}

// EntryView is the JSON shape of a single entry.
type EntryView struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Definition string `json:"definition"`
	Implicit   bool   `json:"implicit,omitempty"`
	Type       string `json:"type,omitempty"`
}

// NewInspector creates an Inspector for c.
func NewInspector(c *container.Container, logger zerolog.Logger) *Inspector {
	return &Inspector{c: c, logger: logger}
}

// Routes mounts the inspector endpoints on r.
func (i *Inspector) Routes(r *routing.Router) {
	r.Prefix("/entries", func(r *routing.Router) {
		r.Middleware(noStore)
		r.Get("/", i.list)
		r.Get("/*", i.show)
		r.Head("/*", i.exists)
	})
}

// Handler returns a standalone router serving only the inspector.
func (i *Inspector) Handler() http.Handler {
	r := routing.New(i.logger)
	i.Routes(r)
	return r
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (i *Inspector) list(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")

	entries := make([]EntryView, 0)
	for _, name := range i.c.KnownEntryNames() {
		def, ok := i.c.Definition(name)
		if !ok {
			continue
		}
		if kind != "" && string(def.Kind()) != kind {
			continue
		}
		entries = append(entries, view(name, def))
	}

	NewResponse(w).Success(entries)
}

func (i *Inspector) show(w http.ResponseWriter, r *http.Request) {
	res := NewResponse(w)

	name := entryName(r)

	var entry EntryView
	if def, ok := i.c.Definition(name); ok {
		entry = view(name, def)
	} else if name != "" && i.c.Has(name) {
		entry = view(name, container.Autowire(name))
		entry.Implicit = true
	} else {
		res.NotFound(fmt.Sprintf("Entry %q not found.", name))
		return
	}

	if r.URL.Query().Get("resolve") != "" {
		v, err := i.c.Get(name)
		if err != nil {
			i.logger.Warn().Err(err).Str("entry", name).Msg("inspector: resolve failed")
			res.ServerError(err.Error())
			return
		}
		entry.Type = fmt.Sprintf("%T", v)
	}

	res.Success(entry)
}

func (i *Inspector) exists(w http.ResponseWriter, r *http.Request) {
	if name := entryName(r); name != "" && i.c.Has(name) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// noStore marks entry views as uncacheable.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func entryName(r *http.Request) string {
	name := routing.Param(r, "*")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func view(name string, def container.Definition) EntryView {
	return EntryView{
		Name:       name,
		Kind:       string(def.Kind()),
		Definition: container.Describe(def),
	}
}
