package models

import "time"

// Status is the processing lifecycle state of a video.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

// Terminal reports whether no further pipeline transition happens from s
// without an explicit external reset.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusError
}

// CanTransition reports whether the pipeline may move a video from s to
// the given status. Processing is never skipped, and terminal states are
// only left through an explicit reset back to pending.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessed || to == StatusError
	case StatusProcessed, StatusError:
		return to == StatusPending
	}
	return false
}

type Video struct {
	ID           int64     `json:"id"`
	ContentHash  string    `json:"content_hash"`
	OriginFileID string    `json:"origin_file_id,omitempty"`
	UserID       int64     `json:"user_id"`
	BlobURL      string    `json:"blob_url,omitempty"`
	Status       Status    `json:"status"`
	UploadTime   time.Time `json:"upload_time"`
}

// LabelAggregate is the per-video summary for one detected object class.
type LabelAggregate struct {
	ID             int64   `json:"id"`
	VideoID        int64   `json:"video_id"`
	Label          string  `json:"label"`
	TotalCount     int     `json:"total_count"`
	AvgConfidence  float64 `json:"avg_confidence"`
	BestConfidence float64 `json:"best_confidence"`
	BestSecond     float64 `json:"best_second"`
}
