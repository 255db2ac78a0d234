package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics("segbench")

	m.ObserveOperation("query", time.Microsecond, nil)
	m.ObserveOperation("query", time.Microsecond, nil)
	m.ObserveOperation("modify", time.Millisecond, errors.New("out of range"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("query", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("modify", ResultError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))

	var nilMetrics *Metrics
	nilMetrics.ObserveOperation("query", time.Second, nil)
}

func TestBuildInfoRegisteredOnce(t *testing.T) {
	m := NewMetrics("segbench")
	m.RegisterBuildInfo("", "v1.2.0")
	m.RegisterBuildInfo("other", "v9")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildInfo.WithLabelValues("unknown", "v1.2.0", runtime.Version())))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BuildInfo, "segbench_build_info"))

	dev := NewMetrics("segbench")
	dev.RegisterBuildInfo("segbench", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(dev.BuildInfo.WithLabelValues("segbench", "dev", runtime.Version())))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics("segbench")
	m.TrialsTotal.WithLabelValues("sum", ResultOK).Add(3)
	m.MaterializedNodes.WithLabelValues("pressure").Set(1234)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `segtree_trials_total{result="ok",workload="sum"} 3`), text)
	assert.Contains(t, text, `segtree_materialized_nodes{workload="pressure"} 1234`)
	assert.Contains(t, text, "go_goroutines")
}
