package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-engine/internal/staking"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("ExitPackage", nil, 10*time.Millisecond)
	m.ObserveOperation("ExitPackage", staking.ErrPackageNotMatured, time.Millisecond)
	m.ObserveOperation("ExitPackage", errors.New("connection reset"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("ExitPackage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("ExitPackage", "PackageNotMatured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("ExitPackage", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestPoolGauges(t *testing.T) {
	m := New()

	m.SetTotalStaked(1000)
	m.SetTotalStaked(400)
	m.AddReleased(300)
	m.AddReleased(150)

	assert.Equal(t, 400.0, testutil.ToFloat64(m.TotalStaked))
	assert.Equal(t, 450.0, testutil.ToFloat64(m.ReleasedTotal))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AddReleased(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "staking_released_total 7")
}
