package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name   string
	status Status
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: c.status}
}

type fakeStats struct{ active, max int }

func (f fakeStats) ActiveConnections() int { return f.active }
func (f fakeStats) MaxConnections() int    { return f.max }

type fakeNATS struct{ up bool }

func (f fakeNATS) IsConnected() bool    { return f.up }
func (f fakeNATS) ConnectedUrl() string { return "nats://x" }

func TestAggregator_OverallStatus(t *testing.T) {
	ctx := context.Background()

	agg := NewAggregator(0, staticChecker{"a", StatusHealthy})
	assert.Equal(t, StatusHealthy, agg.Report(ctx).Status)

	agg.Add(staticChecker{"b", StatusDegraded})
	assert.Equal(t, StatusDegraded, agg.Report(ctx).Status)
	assert.True(t, agg.Ready(ctx))

	agg.Add(staticChecker{"c", StatusUnhealthy})
	rep := agg.Report(ctx)
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.Len(t, rep.Checks, 3)
	assert.False(t, agg.Ready(ctx))
}

func TestListenerChecker(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusHealthy, NewListenerChecker("tcp", fakeStats{10, 0}).Check(ctx).Status)
	assert.Equal(t, StatusHealthy, NewListenerChecker("tcp", fakeStats{10, 100}).Check(ctx).Status)
	assert.Equal(t, StatusDegraded, NewListenerChecker("tcp", fakeStats{85, 100}).Check(ctx).Status)
	assert.Equal(t, StatusUnhealthy, NewListenerChecker("tcp", fakeStats{99, 100}).Check(ctx).Status)
}

func TestNATSChecker(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusHealthy, NewNATSChecker(fakeNATS{true}).Check(ctx).Status)
	assert.Equal(t, StatusDegraded, NewNATSChecker(fakeNATS{false}).Check(ctx).Status)
}

func TestReadiness(t *testing.T) {
	r := NewReadiness(true, true)
	assert.False(t, r.Ready())
	r.SetTCPReady(true)
	assert.False(t, r.Ready())
	r.SetUDPReady(true)
	assert.True(t, r.Ready())

	assert.True(t, NewReadiness(false, false).Ready())
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(0, staticChecker{"x", StatusUnhealthy}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var rep Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, StatusUnhealthy, rep.Status)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
