package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-selector/pkg/types"
)

func TestObserveSelection(t *testing.T) {
	before := testutil.ToFloat64(FramesSelectedTotal.WithLabelValues("metrics_test"))

	ObserveSelection(&types.SelectionResult{
		Strategy:    "metrics_test",
		TotalFrames: 10,
		Selected:    []types.FrameRecord{{Index: 0}, {Index: 5}},
		Malformed:   []*types.FrameError{{Index: 3}},
	})
	ObserveSelection(nil)

	assert.Equal(t, before+2, testutil.ToFloat64(FramesSelectedTotal.WithLabelValues("metrics_test")))
	assert.Equal(t, 10.0, testutil.ToFloat64(FramesScannedTotal.WithLabelValues("metrics_test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesMalformedTotal.WithLabelValues("metrics_test")))
}

func TestObserveDetections(t *testing.T) {
	ok := testutil.ToFloat64(DetectionsTotal.WithLabelValues("ok"))
	failed := testutil.ToFloat64(DetectionsTotal.WithLabelValues("failed"))
	items := testutil.ToFloat64(ItemsDetectedTotal)

	ObserveDetections([]types.FrameDetections{
		{Index: 0, Items: []types.Item{{Label: "a"}, {Label: "b"}}},
		{Index: 1, Err: "timeout"},
	})

	assert.Equal(t, ok+1, testutil.ToFloat64(DetectionsTotal.WithLabelValues("ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(DetectionsTotal.WithLabelValues("failed")))
	assert.Equal(t, items+2, testutil.ToFloat64(ItemsDetectedTotal))
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	RunsTotal.WithLabelValues("ok").Add(0)
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "framesel_runs_total")
}
