package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Item is a single object reported by the detection model
type Item struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionResult is the parsed model output for one frame
type DetectionResult struct {
	Items       []Item `json:"items"`
	Description string `json:"description"`
}

// FrameDetections pairs a selected frame with its detection outcome.
// Err is set instead of Items when detection failed for that frame.
type FrameDetections struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Items     []Item  `json:"items,omitempty"`
	Err       string  `json:"error,omitempty"`
}

// SelectionResult is the ordered subset of frames chosen for detection.
type SelectionResult struct {
	Strategy    string          `json:"strategy"`
	TotalFrames int             `json:"total_frames"`
	Selected    []FrameRecord   `json:"selected"`
	Scores      map[int]float64 `json:"scores,omitempty"`
	Malformed   []*FrameError   `json:"malformed,omitempty"`
}

// Indices returns the indices of the selected frames in order
func (r *SelectionResult) Indices() []int {
	out := make([]int, len(r.Selected))
	for i, f := range r.Selected {
		out[i] = f.Index
	}
	return out
}
