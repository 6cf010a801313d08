package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"modelrepo/internal/manager"
)

func TestWriteMappedErrorNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, manager.ErrNotFound("no such model"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
}

func TestWriteMappedErrorAlreadyExists(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, manager.ErrAlreadyExists("repository already registered"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409", w.Code)
	}
}

func TestWriteMappedErrorInvalidArgument(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, manager.ErrInvalidArgument("bad request"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestWriteMappedErrorUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, manager.ErrUnavailable("no ready version"))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", w.Code)
	}
}

type customHTTPError struct{ code int }

func (e customHTTPError) Error() string   { return "custom" }
func (e customHTTPError) StatusCode() int { return e.code }

func TestWriteMappedErrorHTTPErrorInterface(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, customHTTPError{code: http.StatusTeapot})
	if w.Code != http.StatusTeapot {
		t.Fatalf("status=%d, want 418", w.Code)
	}
}

func TestWriteMappedErrorFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	writeMappedError(w, plainError("boom"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}

type plainError string

func (e plainError) Error() string { return string(e) }

func TestLoadModelHandlerMapsManagerErrors(t *testing.T) {
	svc := &mockService{loadErr: manager.ErrNotFound("model not found: nope")}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v2/repository/models/nope/load", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
}

func TestUnregisterHandlerMapsManagerErrors(t *testing.T) {
	svc := &mockService{unregErr: manager.ErrNotFound("repository not registered")}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v2/repository/unregister", bytes.NewBufferString(`{"path":"/models"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
}
