package router_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/test"
)

func TestMetricsEndpoint(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/wallets", nil, nil)
		require.Equal(t, http.StatusCreated, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		body := res.Body.String()
		assert.Contains(t, body, "go_keyring_storage_operation_duration_seconds")
		assert.Contains(t, body, `go_keyring_wallet_derivations_total{mode="index"} 1`)
		assert.Contains(t, body, "go_keyring_http_requests_total")
	})
}

func TestUnknownRouteIsJSONProblem(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/nope", nil, nil)
		require.Equal(t, http.StatusNotFound, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), `"type":"generic"`)
	})
}
