package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/soledrop/soledrop-backend/api/responses"
)

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) responses.APIError {
	t.Helper()
	var env responses.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func expectError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) responses.APIError {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
	apiErr := decodeError(t, resp)
	if apiErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, apiErr.Code)
	}
	return apiErr
}
