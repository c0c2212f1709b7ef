package tenantjwt

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-tenant-jwt-middleware/internal/jwttest"
)

type recordingMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	refreshed   []string
	unavailable []string
}

func (m *recordingMetrics) AuthenticationCompleted(tenantID, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, tenantID+"/"+outcome)
}

func (m *recordingMetrics) MetadataRefreshed(authority string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, authority)
}

func (m *recordingMetrics) MetadataUnavailable(authority string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = append(m.unavailable, authority)
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	metrics.AuthenticationCompleted("acme", "success", 10*time.Millisecond)
	metrics.AuthenticationCompleted("acme", "success", 20*time.Millisecond)
	metrics.AuthenticationCompleted("beta", "fail", time.Millisecond)
	metrics.MetadataRefreshed("https://idp")
	metrics.MetadataUnavailable("https://idp")

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.authentications.WithLabelValues("acme", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.authentications.WithLabelValues("beta", "fail")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.refreshes.WithLabelValues("https://idp")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.unavailable.WithLabelValues("https://idp")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))

	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestHandlerMetrics(t *testing.T) {
	f := newFixture(t)
	for field, value := range map[string]string{
		"Authority":         f.provider.URL,
		"ClientId":          "api-acme",
		"Audience":          "api-acme",
		"RoleClaimTemplate": "resource_access.api-acme.roles",
		"NameClaimType":     "preferred_username",
	} {
		f.source["oidc:acme:"+strings.ToLower(field)] = value
	}
	metrics := &recordingMetrics{}
	h := f.handler(t, WithMetrics(metrics))

	_, err := h.Authenticate(request("acme", f.token(t, f.key, "acme")))
	require.NoError(t, err)
	_, err = h.Authenticate(request("acme", ""))
	require.NoError(t, err)
	_, err = h.Authenticate(request("beta", f.token(t, f.key, "acme")))
	require.NoError(t, err)

	unknown := jwttest.NewKey(t, "key-9")
	_, err = h.Authenticate(request("acme", f.token(t, unknown, "acme")))
	require.NoError(t, err)

	delete(f.source, "oidc:${template}:audience")
	_, err = h.Authenticate(request("gamma", f.token(t, f.key, "gamma")))
	require.Error(t, err)

	assert.Equal(t, []string{
		"acme/success",
		"/no_result",
		"template/fail",
		"acme/fail",
		"unresolved/error",
	}, metrics.outcomes)
	assert.Equal(t, []string{f.provider.URL}, metrics.refreshed)
}

func TestPrometheusMetrics_TenantCardinality(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)
	h := f.handler(t, WithMetrics(metrics))

	for i := 0; i < 50; i++ {
		_, err := h.Authenticate(request(fmt.Sprintf("rnd%d", i), "garbage"))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.authentications))
	assert.Equal(t, float64(50), testutil.ToFloat64(metrics.authentications.WithLabelValues("template", "fail")))
}
