package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics(nil, logrus.New())
	require.NotNil(t, pm)
	assert.Equal(t, "dpkit", pm.config.Namespace)
}

func TestRecordNoiseRequest(t *testing.T) {
	pm := NewPrometheusMetrics(nil, nil)

	pm.RecordNoiseRequest("laplace", "success", 5*time.Millisecond)
	pm.RecordNoiseRequest("laplace", "success", 3*time.Millisecond)
	pm.RecordNoiseRequest("gaussian", "error", 1*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.noiseRequestsTotal.WithLabelValues("laplace", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.noiseRequestsTotal.WithLabelValues("gaussian", "error")))
}

func TestRecordPrivacySpend(t *testing.T) {
	pm := NewPrometheusMetrics(nil, nil)

	pm.RecordPrivacySpend(0.5, 0, 0.5, 0)
	pm.RecordPrivacySpend(0.3, 1e-6, 0.8, 1e-6)

	assert.InDelta(t, 0.8, testutil.ToFloat64(pm.epsilonConsumedTotal), 1e-12)
	assert.InDelta(t, 1e-6, testutil.ToFloat64(pm.deltaConsumedTotal), 1e-18)
	assert.InDelta(t, 0.8, testutil.ToFloat64(pm.budgetEpsilonTotal), 1e-12)
}
