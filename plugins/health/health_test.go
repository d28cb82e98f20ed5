package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

func probe(t *testing.T, h http.Handler, path string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestHandler_FollowsLifecycle(t *testing.T) {
	m := lifecycle.NewManager(lifecycle.WithName("api"))
	h := NewHandler(m)
	ctx := context.Background()

	assert.Equal(t, http.StatusOK, probe(t, h, "/live"))
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h, "/ready"))

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, http.StatusOK, probe(t, h, "/ready"))

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h, "/ready"))
	assert.Equal(t, http.StatusOK, probe(t, h, "/live"))

	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h, "/live"))
}

func TestReadinessCheck_Error(t *testing.T) {
	m := lifecycle.NewManager(lifecycle.WithName("worker"))
	err := ReadinessCheck(m)()
	require.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "worker is uninitialized")
}

func TestHandler_MultipleManagers(t *testing.T) {
	a := lifecycle.NewManager(lifecycle.WithName("a"))
	b := lifecycle.NewManager(lifecycle.WithName("b"))
	h := NewMetricsHandler(prometheus.NewRegistry(), "stagehand", a, b)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	require.NoError(t, a.Start(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h, "/ready"), "b is not ready yet")

	require.NoError(t, b.Initialize(ctx))
	require.NoError(t, b.Start(ctx))
	assert.Equal(t, http.StatusOK, probe(t, h, "/ready"))
}
