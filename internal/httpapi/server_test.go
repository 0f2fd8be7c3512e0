package httpapi

import (
    "net/http"
    "net/http/httptest"
    "testing"
)

func TestBearerAuthRejectsMissingToken(t *testing.T) {
    mw := bearerAuth("secret")
    called := false
    next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
    rec := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/dialer/next-batch", nil)

    mw(next).ServeHTTP(rec, req)

    if called {
        t.Fatal("handler must not run without a valid bearer token")
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestBearerAuthAcceptsValidToken(t *testing.T) {
    mw := bearerAuth("secret")
    called := false
    next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
    rec := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/dialer/next-batch", nil)
    req.Header.Set("Authorization", "Bearer secret")

    mw(next).ServeHTTP(rec, req)

    if !called {
        t.Fatal("handler must run with a valid bearer token")
    }
}
