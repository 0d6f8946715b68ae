// Package pipeline drives one end-to-end processing attempt per video:
// fetch the source bytes, decode and aggregate detections, persist the
// summary, and always leave the video in a terminal status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidobj/vidobj/internal/blob"
	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/detect"
	"github.com/vidobj/vidobj/internal/frames"
	"github.com/vidobj/vidobj/internal/models"
)

type VideoStore interface {
	Get(ctx context.Context, id int64) (*models.Video, error)
	UpdateStatus(ctx context.Context, id int64, to models.Status) error
}

type AggregateStore interface {
	ReplaceForVideo(ctx context.Context, videoID int64, aggregates []models.LabelAggregate) error
}

// SourceFactory opens a fetched video file as a frame sequence.
type SourceFactory func(path string) (frames.Source, error)

type Orchestrator struct {
	videos     VideoStore
	aggregates AggregateStore
	detector   detect.Detector
	openSource SourceFactory
	fetcher    *http.Client
	log        *zap.Logger
}

func NewOrchestrator(
	videos VideoStore,
	aggregates AggregateStore,
	detector detect.Detector,
	openSource SourceFactory,
	fetchTimeout time.Duration,
	log *zap.Logger,
) *Orchestrator {
	if openSource == nil {
		openSource = func(path string) (frames.Source, error) {
			return frames.NewFFmpegSource(path)
		}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		videos:     videos,
		aggregates: aggregates,
		detector:   detector,
		openSource: openSource,
		fetcher:    &http.Client{Timeout: fetchTimeout},
		log:        log,
	}
}

// Process runs one attempt for the video. On return the video is in a
// terminal status; redelivered messages for an already terminal video
// short-circuit without side effects.
func (o *Orchestrator) Process(ctx context.Context, videoID int64) (err error) {
	log := o.log.With(zap.Int64("video_id", videoID), zap.String("run_id", uuid.New().String()))

	video, err := o.videos.Get(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to load video %d: %w", videoID, err)
	}

	if video.Status.Terminal() {
		log.Info("Video already in terminal status, skipping", zap.String("status", string(video.Status)))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = o.fail(ctx, log, videoID, "processing panicked", fmt.Errorf("%v", r))
		}
	}()

	if video.BlobURL == "" {
		return o.fail(ctx, log, videoID, "video has no blob location", errors.New("missing blob url"))
	}

	if err := o.videos.UpdateStatus(ctx, videoID, models.StatusProcessing); err != nil {
		return o.fail(ctx, log, videoID, "failed to mark video processing", err)
	}

	path, cleanup, err := blob.Fetch(ctx, o.fetcher, video.BlobURL)
	if err != nil {
		return o.fail(ctx, log, videoID, "blob fetch failed", err)
	}
	defer cleanup()

	src, err := o.openSource(path)
	if err != nil {
		return o.fail(ctx, log, videoID, "failed to open frame source", err)
	}
	defer src.Close()

	result, err := detect.Aggregate(ctx, src, o.detector)
	if err != nil {
		return o.fail(ctx, log, videoID, "aggregation failed", err)
	}

	if len(result) == 0 {
		if err := o.videos.UpdateStatus(ctx, videoID, models.StatusProcessed); err != nil {
			return o.fail(ctx, log, videoID, "failed to mark video processed", err)
		}
		log.Info("Video processed, no objects detected")
		return nil
	}

	aggregates := make([]models.LabelAggregate, 0, len(result))
	for _, agg := range result {
		agg.VideoID = videoID
		aggregates = append(aggregates, agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].Label < aggregates[j].Label
	})

	if err := o.aggregates.ReplaceForVideo(ctx, videoID, aggregates); err != nil {
		return o.fail(ctx, log, videoID, "failed to persist aggregates", err)
	}

	if err := o.videos.UpdateStatus(ctx, videoID, models.StatusProcessed); err != nil {
		return o.fail(ctx, log, videoID, "failed to mark video processed", err)
	}

	log.Info("Video processed", zap.Int("labels", len(aggregates)))
	return nil
}

// fail classifies an error at the orchestrator boundary: the video is
// moved to the terminal error status and the cause reported upward. A
// failure before the processing transition passes through processing
// first, so no lifecycle state is skipped.
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, videoID int64, msg string, cause error) error {
	if err := o.videos.UpdateStatus(ctx, videoID, models.StatusProcessing); err != nil &&
		!errors.Is(err, database.ErrInvalidTransition) {
		log.Warn("Could not enter processing before error", zap.Error(err))
	}
	if err := o.videos.UpdateStatus(ctx, videoID, models.StatusError); err != nil {
		log.Error("Could not record error status", zap.Error(err))
	}

	log.Warn("Video processing failed", zap.String("reason", msg), zap.Error(cause))
	return fmt.Errorf("%s: %w", msg, cause)
}
