package analytics

import "time"

// AnalysisEvent is published once per /analyze request, successful or not.
type AnalysisEvent struct {
	VideoID   string    `json:"video_id,omitempty"`
	Positive  int       `json:"positive"`
	Negative  int       `json:"negative"`
	Total     int       `json:"total"`
	Cached    bool      `json:"cached"`
	ErrorKind string    `json:"error_kind,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Succeeded reports whether the analysis produced a tally.
func (e AnalysisEvent) Succeeded() bool {
	return e.ErrorKind == ""
}
