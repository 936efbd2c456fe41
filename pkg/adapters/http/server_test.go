package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/corefollow"
	adapter "github.com/aretw0/corefollow/pkg/adapters/http"
	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	c, err := config.Load("../../../testdata/case.yaml")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	return adapter.NewHandler(&adapter.Server{
		Case:     c,
		Options:  []corefollow.Option{corefollow.WithLifecycleHooks(metrics.Hooks())},
		Gatherer: reg,
	}), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","case":"test-core"}`, w.Body.String())
}

func TestRuns(t *testing.T) {
	h, _ := newServer(t)

	t.Run("case operation", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/runs", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp adapter.RunResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "flexible", resp.Operation)
		require.Len(t, resp.Results, 3)
		assert.InDelta(t, 0.8, resp.Results[2].Power, 1e-9)
		assert.Empty(t, resp.Error)
	})

	t.Run("operation override", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/runs", `{"operation": {"kind": "xenon", "time_step": 1800, "end_time": 3600}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp adapter.RunResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "xenon", resp.Operation)
		assert.Len(t, resp.Results, 2)
	})

	t.Run("runs get distinct ids", func(t *testing.T) {
		var a, b adapter.RunResponse
		require.NoError(t, json.Unmarshal(do(t, h, http.MethodPost, "/runs", "").Body.Bytes(), &a))
		require.NoError(t, json.Unmarshal(do(t, h, http.MethodPost, "/runs", "").Body.Bytes(), &b))
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestRuns_BadRequests(t *testing.T) {
	h, _ := newServer(t)
	for name, body := range map[string]string{
		"malformed":      `{"operation":`,
		"unknown field":  `{"steps": 3}`,
		"unknown kind":   `{"operation": {"kind": "scram"}}`,
		"bad param":      `{"operation": {"kind": "coastdown", "params": {"target_power": 5}}}`,
		"unknown search": `{"option": {"search": "FAST"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/runs", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSDM(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/sdm", `{"sdm": {"stuck_rods": ["R4"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp adapter.SDMResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "R4", resp.Result.StuckRod)
	assert.Len(t, resp.Result.BankWorths, 3)
}

func TestScenarios(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["dip","ramp"]`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	h, _ := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/runs", "").Code)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `corefollow_steps_total{operation="flexible"} 3`)
	assert.Contains(t, w.Body.String(), "corefollow_search_iterations_bucket")
}

func TestRuns_OptionIsMerged(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodPost, "/runs", `{"option": {"tin": 285}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp adapter.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.InDelta(t, 0.8, resp.Results[2].Power, 1e-9, "unset fields keep the case option")
}
