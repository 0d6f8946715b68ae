package detect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vidobj/vidobj/internal/frames"
	"github.com/vidobj/vidobj/internal/models"
)

// DefaultFPS substitutes for streams whose frame rate is unknown or
// non-positive. Timestamps become approximate but the run completes.
const DefaultFPS = 30.0

type labelStats struct {
	count     int
	sum       float64
	best      float64
	bestFrame int
}

// Aggregate consumes the frame sequence and builds the per-label summary.
// Frames are processed strictly in order, one inference call at a time. A
// failed inference call skips that frame; it never aborts the run. An
// empty result map is a valid outcome: processed successfully, nothing
// found.
func Aggregate(ctx context.Context, src frames.Source, detector Detector) (map[string]models.LabelAggregate, error) {
	stats := make(map[string]*labelStats)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame decoding failed: %w", err)
		}

		detections, err := detector.Infer(ctx, frame.Data)
		if err != nil {
			// Per-frame failure counts as zero detections.
			continue
		}

		for _, d := range detections {
			s, ok := stats[d.Label]
			if !ok {
				s = &labelStats{}
				stats[d.Label] = s
			}
			s.count++
			s.sum += d.Confidence
			// Strict inequality: on an exact confidence tie the
			// earliest frame keeps the best slot.
			if s.count == 1 || d.Confidence > s.best {
				s.best = d.Confidence
				s.bestFrame = frame.Index
			}
		}
	}

	fps := src.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}

	result := make(map[string]models.LabelAggregate, len(stats))
	for label, s := range stats {
		result[label] = models.LabelAggregate{
			Label:          label,
			TotalCount:     s.count,
			AvgConfidence:  s.sum / float64(s.count),
			BestConfidence: s.best,
			BestSecond:     float64(s.bestFrame) / fps,
		}
	}

	return result, nil
}
