package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/frame-selector/pkg/types"
)

// Report summarises one pipeline run
type Report struct {
	RunID         string              `json:"run_id"`
	Input         string              `json:"input"`
	Strategy      string              `json:"strategy"`
	TotalFrames   int                 `json:"total_frames"`
	VideoDuration float64             `json:"video_duration,omitempty"`
	Selected      []SelectedFrame     `json:"selected"`
	Malformed     []*types.FrameError `json:"malformed,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
	Elapsed       float64             `json:"elapsed_seconds"`
}

// SelectedFrame is one chosen frame with everything produced for it
type SelectedFrame struct {
	Index          int          `json:"index"`
	Timestamp      float64      `json:"timestamp"`
	Score          *float64     `json:"score,omitempty"`
	Source         string       `json:"source,omitempty"`
	Exported       string       `json:"exported,omitempty"`
	DebugImage     string       `json:"debug_image,omitempty"`
	ItemCrops      []string     `json:"item_crops,omitempty"`
	Items          []types.Item `json:"items,omitempty"`
	DetectionError string       `json:"detection_error,omitempty"`
}

// Indices returns the selected frame indices in order
func (r *Report) Indices() []int {
	out := make([]int, len(r.Selected))
	for i, f := range r.Selected {
		out[i] = f.Index
	}
	return out
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// SaveToFile writes the report as JSON to path, creating parent directories
func (r *Report) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := r.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newReport(runID, input string, result *types.SelectionResult) *Report {
	r := &Report{
		RunID:       runID,
		Input:       input,
		Strategy:    result.Strategy,
		TotalFrames: result.TotalFrames,
		Selected:    make([]SelectedFrame, len(result.Selected)),
		Malformed:   result.Malformed,
	}
	for i, f := range result.Selected {
		sf := SelectedFrame{
			Index:     f.Index,
			Timestamp: f.Timestamp,
			Source:    f.Source,
		}
		if score, ok := result.Scores[f.Index]; ok {
			sf.Score = &score
		}
		r.Selected[i] = sf
	}
	return r
}
