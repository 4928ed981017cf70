package models

import "math"

// SourceKind classifies a significance source.
type SourceKind string

const (
	SourceCompany SourceKind = "company"
	SourceIndex   SourceKind = "index"
	SourcePeer    SourceKind = "peer"
)

// SignificanceRecord is the merged score of one source.
type SignificanceRecord struct {
	SourceID      string     `json:"source_id"`
	Kind          SourceKind `json:"kind"`
	Significance  float64    `json:"significance"`
	Articles      []Article  `json:"articles"`
	Batches       int        `json:"batches"`
	FailedBatches int        `json:"failed_batches"`
	Err           string     `json:"error,omitempty"`
}

// Failed reports whether every batch of the source failed.
func (r SignificanceRecord) Failed() bool {
	return r.Err != ""
}

// ClampSignificance maps any oracle value into [0,1]. NaN becomes 0.
func ClampSignificance(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
