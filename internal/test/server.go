package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/api/router"
	"github/chapool/go-keyring/internal/sea"
)

// WithTestServer runs closure with a routed server for a fresh identity on a
// memory graph.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()
	closure(NewTestServer(t))
}

func NewTestServer(t *testing.T) *api.Server {
	t.Helper()

	cfg := ServerConfig()
	pair, err := sea.NewProvider(cfg.Sea).Pair(t.Context())
	require.NoError(t, err)

	s, err := api.InitNewServer(cfg, pair)
	require.NoError(t, err)
	require.NoError(t, router.Init(s))

	t.Cleanup(func() {
		for _, err := range s.Shutdown(context.Background()) {
			t.Logf("shutdown: %v", err)
		}
	})

	return s
}

// PerformRequest sends body as JSON to path and records the response.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequestWithContext(t.Context(), method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)
	return res
}

// ParseResponseAndValidate decodes a JSON response body into out.
func ParseResponseAndValidate(t *testing.T, res *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}
