package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/menta2k/frame-selector/pkg/types"
)

var (
	FramesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesel_frames_scanned_total",
		Help: "Total number of input frames seen by the selection policy, by strategy",
	}, []string{"strategy"})

	FramesSelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesel_frames_selected_total",
		Help: "Total number of frames selected for detection, by strategy",
	}, []string{"strategy"})

	FramesMalformedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesel_frames_malformed_total",
		Help: "Total number of frames skipped as malformed, by strategy",
	}, []string{"strategy"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framesel_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesel_detections_total",
		Help: "Total number of per-frame detection calls, by status",
	}, []string{"status"})

	ItemsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framesel_items_detected_total",
		Help: "Total number of items reported by the detection model",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesel_runs_total",
		Help: "Total number of pipeline runs, by status",
	}, []string{"status"})
)

// ObserveSelection records the frame counters of one selection result
func ObserveSelection(r *types.SelectionResult) {
	if r == nil {
		return
	}
	FramesScannedTotal.WithLabelValues(r.Strategy).Add(float64(r.TotalFrames))
	FramesSelectedTotal.WithLabelValues(r.Strategy).Add(float64(len(r.Selected)))
	FramesMalformedTotal.WithLabelValues(r.Strategy).Add(float64(len(r.Malformed)))
}

// ObserveDetections records per-frame detection outcomes
func ObserveDetections(detections []types.FrameDetections) {
	for _, d := range detections {
		if d.Err != "" {
			DetectionsTotal.WithLabelValues("failed").Inc()
			continue
		}
		DetectionsTotal.WithLabelValues("ok").Inc()
		ItemsDetectedTotal.Add(float64(len(d.Items)))
	}
}
