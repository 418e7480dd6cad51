package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func adminPost(path, body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithUserID(req.Context(), "admin-1"))
}

func TestRequiresIdempotency(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   bool
	}{
		{"reconcile", http.MethodPost, "/api/admin/v1/catalog/reconcile", true},
		{"brand create", http.MethodPost, "/api/admin/v1/brands", true},
		{"photo upload", http.MethodPost, "/api/admin/v1/listings/123/photos", true},
		{"brand patch", http.MethodPatch, "/api/admin/v1/brands/123", false},
		{"storefront", http.MethodGet, "/api/v1/listings", false},
		{"wishlist put", http.MethodPut, "/api/v1/wishlist/123", false},
	}
	for _, tt := range tests {
		if got := requiresIdempotency(tt.method, tt.path); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, adminPost("/api/admin/v1/brands", `{"name":"Nova"}`, ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, adminPost("/api/admin/v1/catalog/reconcile", `{"sku":"NZ-1"}`, "abc"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, adminPost("/api/admin/v1/catalog/reconcile", `{"sku":"NZ-1"}`, "abc"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if rec.Header().Get(replayHeader) != "true" {
		t.Fatalf("expected replay header on stored response")
	}
	if resp.Header().Get(replayHeader) != "" {
		t.Fatalf("first response must not be marked as replayed")
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		mw(handler).ServeHTTP(httptest.NewRecorder(), adminPost("/api/admin/v1/catalog/reconcile", `{}`, "retry-me"))
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), adminPost("/api/admin/v1/brands", `{"name":"Nova"}`, "xyz"))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, adminPost("/api/admin/v1/brands", `{"name":"Other"}`, "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), adminPost("/api/admin/v1/brands", `{"name":"Nova"}`, "same"))
	other := httptest.NewRequest(http.MethodPost, "/api/admin/v1/brands", strings.NewReader(`{"name":"Nova"}`))
	other.Header.Set("Idempotency-Key", "same")
	other = other.WithContext(WithUserID(other.Context(), "admin-2"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("expected separate scopes per user, got %d calls", calls)
	}
}

func TestIdempotencyRejectsConcurrentRetry(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, IdempotencyOptions{TTL: time.Hour}, nil)

	var inner *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inner == nil {
			inner = httptest.NewRecorder()
			mw(http.NotFoundHandler()).ServeHTTP(inner, adminPost("/api/admin/v1/catalog/reconcile", `{"sku":"NZ-1"}`, "busy"))
		}
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, adminPost("/api/admin/v1/catalog/reconcile", `{"sku":"NZ-1"}`, "busy"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first request 201 got %d", resp.Code)
	}
	if inner.Code != http.StatusConflict {
		t.Fatalf("expected in-flight retry 409 got %d", inner.Code)
	}
}

func TestIdempotencyIgnoresMultipartBoundary(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	upload := func(boundary string) *http.Request {
		body := "--" + boundary + "\r\n" +
			"Content-Disposition: form-data; name=\"photos\"; filename=\"a.jpg\"\r\n\r\n" +
			"bytes\r\n--" + boundary + "--\r\n"
		req := adminPost("/api/admin/v1/listings/42/photos", body, "photo-1")
		req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
		return req
	}

	mw(handler).ServeHTTP(httptest.NewRecorder(), upload("aaaa1111"))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, upload("bbbb2222"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected boundary change to replay, got %d calls", calls)
	}
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	mw := Idempotency(newFakeStore(), IdempotencyOptions{TTL: time.Hour, MaxBodyBytes: 8}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run for oversized body")
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, adminPost("/api/admin/v1/brands", `{"name":"Nova Athletics"}`, "big"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, IdempotencyOptions{TTL: time.Hour}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), adminPost("/api/admin/v1/items", `{}`, "boom"))

	if len(store.data) != 0 {
		t.Fatalf("expected reservation released, found %d keys", len(store.data))
	}
}
