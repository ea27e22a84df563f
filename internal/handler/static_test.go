package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/wedding-rsvp/internal/handler"
)

func newTestSPA() *handler.SPAHandler {
	return handler.NewSPAHandlerFS(fstest.MapFS{
		"index.html":         {Data: []byte("<!doctype html><div id=root></div>")},
		"assets/app-1a2b.js": {Data: []byte("console.log('rsvp')")},
	}, testLogger())
}

func TestSPAHandler(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantBody string
		wantType string
	}{
		{"root", "/", "<div id=root>", "text/html"},
		{"asset", "/assets/app-1a2b.js", "console.log", "javascript"},
		{"client route", "/rsvp/thank-you", "<div id=root>", "text/html"},
		{"missing asset", "/assets/gone.js", "<div id=root>", "text/html"},
		{"directory", "/assets", "<div id=root>", "text/html"},
	}

	h := newTestSPA()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.Contains(t, rr.Header().Get("Content-Type"), tt.wantType)
		})
	}
}

func TestSPAHandler_NotBuilt(t *testing.T) {
	h := handler.NewSPAHandlerFS(fstest.MapFS{}, testLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHandleHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.NewHealthHandler(fakePinger{}, testLogger()).
		HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handler.NewHealthHandler(fakePinger{err: errors.New("closed")}, testLogger()).
		HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
