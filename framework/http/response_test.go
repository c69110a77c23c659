package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	kmhttp "github.com/km-arc/di-config/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*kmhttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return kmhttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	return m
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestResponse_JSON(t *testing.T) {
	res, rr := newResponse(t)
	res.JSON(http.StatusOK, map[string]any{"key": "val"})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q want application/json", ct)
	}
	m := decodeJSON(t, rr)
	if m["key"] != "val" {
		t.Errorf("body key: got %v want val", m["key"])
	}
}

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success(map[string]any{"id": float64(1)})

	m := decodeJSON(t, rr)
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data envelope, got %T", m["data"])
	}
	if data["id"] != float64(1) {
		t.Errorf("data.id: got %v want 1", data["id"])
	}
}

// ── Errors ────────────────────────────────────────────────────────────────────

func TestResponse_Error(t *testing.T) {
	res, rr := newResponse(t)
	res.Error(http.StatusConflict, "Already defined.")

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d want 409", rr.Code)
	}
	if m := decodeJSON(t, rr); m["message"] != "Already defined." {
		t.Errorf("message: got %v", m["message"])
	}
}

func TestResponse_DefaultMessages(t *testing.T) {
	cases := []struct {
		name    string
		send    func(*kmhttp.Response)
		status  int
		message string
	}{
		{"not found", func(r *kmhttp.Response) { r.NotFound() }, http.StatusNotFound, "Not found."},
		{"not found custom", func(r *kmhttp.Response) { r.NotFound("Gone.") }, http.StatusNotFound, "Gone."},
		{"server error", func(r *kmhttp.Response) { r.ServerError() }, http.StatusInternalServerError, "Server Error."},
		{"server error blank", func(r *kmhttp.Response) { r.ServerError("") }, http.StatusInternalServerError, "Server Error."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, rr := newResponse(t)
			tc.send(res)

			if rr.Code != tc.status {
				t.Errorf("status: got %d want %d", rr.Code, tc.status)
			}
			if m := decodeJSON(t, rr); m["message"] != tc.message {
				t.Errorf("message: got %v want %q", m["message"], tc.message)
			}
		})
	}
}
