package routing_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/km-arc/di-config/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, router *routing.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Get(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Get("/hello", okHandler)

	rr := do(t, r, http.MethodGet, "/hello")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /hello: got %d want 200", rr.Code)
	}
}

func TestRouter_Head(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Head("/hello", okHandler)

	rr := do(t, r, http.MethodHead, "/hello")
	if rr.Code != http.StatusOK {
		t.Errorf("HEAD /hello: got %d want 200", rr.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Get("/hello", okHandler)

	rr := do(t, r, http.MethodPost, "/hello")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /hello: got %d want 405", rr.Code)
	}
}

// ── Prefix ────────────────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Prefix("/entries", func(sub *routing.Router) {
		sub.Get("/*", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(routing.Param(req, "*")))
		})
	})

	rr := do(t, r, http.MethodGet, "/entries/example.com/app.Mailer")
	if got := rr.Body.String(); got != "example.com/app.Mailer" {
		t.Errorf("wildcard param: got %q want example.com/app.Mailer", got)
	}
}

func TestRouter_Param(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Get("/kinds/{kind}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(routing.Param(req, "kind")))
	})

	rr := do(t, r, http.MethodGet, "/kinds/factory")
	if got := rr.Body.String(); got != "factory" {
		t.Errorf("param: got %q want factory", got)
	}
}

// ── Middleware ────────────────────────────────────────────────────────────────

func TestRouter_Middleware(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Middleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Inspector", "1")
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/", okHandler)

	rr := do(t, r, http.MethodGet, "/")
	if rr.Header().Get("X-Inspector") != "1" {
		t.Error("middleware header missing")
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	r := routing.New(zerolog.Nop())
	r.Get("/panic", func(w http.ResponseWriter, req *http.Request) {
		panic("boom")
	})

	rr := do(t, r, http.MethodGet, "/panic")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("panic: got %d want 500", rr.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	r := routing.New(logger)
	r.Get("/hello", okHandler)
	do(t, r, http.MethodGet, "/hello")

	out := buf.String()
	if !strings.Contains(out, `"path":"/hello"`) || !strings.Contains(out, `"status":200`) {
		t.Errorf("request log: got %s", out)
	}
}
