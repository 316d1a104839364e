package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObservePut("value", nil)
	m.ObservePut("value", errors.New("Invalid number"))
	m.ObservePut("value", nil)
	m.ObserveWalk(ModeGenerate, 4, time.Millisecond)
	m.ObserveWalk(ModeCheck, 0, time.Microsecond)
	m.ObserveRefresh("bits")
	m.ObserveFormatError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.putsTotal.WithLabelValues("value", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.putsTotal.WithLabelValues("value", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.walksTotal.WithLabelValues(ModeGenerate)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.linesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshesTotal.WithLabelValues("bits")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.formatErrors))
	assert.Equal(t, 2, testutil.CollectAndCount(m.walkDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePut("value", nil)
		m.ObserveWalk(ModeCheck, 1, time.Second)
		m.ObserveRefresh("positions")
		m.ObserveFormatError()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRefresh("positions")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `panda_registry_bus_refreshes_total{bus="positions"} 1`))
}
