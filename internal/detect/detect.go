// Package detect wraps the object-detection model and aggregates its
// per-frame output into per-label video summaries.
package detect

import "context"

// Detection is one object found in one frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Detector runs inference on a single encoded frame. A call may fail;
// callers treat that as zero detections for the frame and move on.
type Detector interface {
	Infer(ctx context.Context, frame []byte) ([]Detection, error)
}
