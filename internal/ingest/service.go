// Package ingest accepts submitted videos: it hashes the content,
// resolves duplicates, stores the bytes, and queues the processing task.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vidobj/vidobj/internal/blob"
	"github.com/vidobj/vidobj/internal/models"
)

type VideoStore interface {
	Create(ctx context.Context, video *models.Video) (bool, error)
	SetBlobURL(ctx context.Context, id int64, url string) error
	ResetForReprocess(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type Queue interface {
	EnqueueProcessVideo(ctx context.Context, videoID int64) error
}

// Submission is what the caller gets back: the video's id and whether the
// content was already known.
type Submission struct {
	VideoID   int64 `json:"id"`
	Duplicate bool  `json:"duplicate"`
}

type Service struct {
	videos        VideoStore
	blobs         blob.Store
	queue         Queue
	httpClient    *http.Client
	maxRemoteSize int64
	log           *zap.Logger
}

func NewService(videos VideoStore, blobs blob.Store, queue Queue, fetchTimeout time.Duration, maxRemoteSize int64, log *zap.Logger) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		videos:        videos,
		blobs:         blobs,
		queue:         queue,
		httpClient:    &http.Client{Timeout: fetchTimeout},
		maxRemoteSize: maxRemoteSize,
		log:           log,
	}
}

// Submit registers raw video bytes. Identical content resolves to the
// existing record: no new row, no second blob upload, no re-enqueue.
func (s *Service) Submit(ctx context.Context, data []byte, originFileID string, userID int64) (*Submission, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	video := &models.Video{
		ContentHash:  hash,
		OriginFileID: originFileID,
		UserID:       userID,
		Status:       models.StatusPending,
		UploadTime:   time.Now().UTC(),
	}

	duplicate, err := s.videos.Create(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to register video: %w", err)
	}
	if duplicate {
		if video.BlobURL != "" {
			s.log.Info("Duplicate submission resolved to existing video",
				zap.Int64("video_id", video.ID), zap.String("hash", hash))
			return &Submission{VideoID: video.ID, Duplicate: true}, nil
		}
		// An earlier submission of this content died before its upload
		// finished. The bytes are in hand again, so finish the job.
		s.log.Info("Resuming incomplete submission",
			zap.Int64("video_id", video.ID), zap.String("hash", hash))
	}

	key := hash + ".mp4"
	url, err := s.blobs.Put(ctx, key, bytes.NewReader(data))
	if err != nil {
		s.unwind(ctx, video.ID, duplicate)
		return nil, fmt.Errorf("failed to store video bytes: %w", err)
	}

	if err := s.videos.SetBlobURL(ctx, video.ID, url); err != nil {
		s.unwind(ctx, video.ID, duplicate)
		return nil, fmt.Errorf("failed to record blob location: %w", err)
	}

	if err := s.queue.EnqueueProcessVideo(ctx, video.ID); err != nil {
		s.unwind(ctx, video.ID, duplicate)
		return nil, fmt.Errorf("failed to enqueue processing: %w", err)
	}

	s.log.Info("Video submitted",
		zap.Int64("video_id", video.ID),
		zap.Int("size", len(data)),
		zap.String("hash", hash))

	return &Submission{VideoID: video.ID, Duplicate: duplicate}, nil
}

// unwind removes the record this call created, so a failed submission does
// not leave its content hash claimed by a video that can never be
// processed. A resumed record is left alone: it predates this call, and
// the next submission of the same bytes picks it up again.
func (s *Service) unwind(ctx context.Context, videoID int64, resumed bool) {
	if resumed {
		return
	}
	if err := s.videos.Delete(ctx, videoID); err != nil {
		s.log.Error("Failed to remove incomplete video record",
			zap.Int64("video_id", videoID), zap.Error(err))
	}
}

// SubmitURL downloads a remote video and feeds it through Submit.
func (s *Service) SubmitURL(ctx context.Context, url string, userID int64) (*Submission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid video url: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video download returned status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if s.maxRemoteSize > 0 {
		reader = io.LimitReader(resp.Body, s.maxRemoteSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read video body: %w", err)
	}
	if s.maxRemoteSize > 0 && int64(len(data)) > s.maxRemoteSize {
		return nil, fmt.Errorf("remote video exceeds %d bytes", s.maxRemoteSize)
	}

	return s.Submit(ctx, data, url, userID)
}

// Reprocess resets a non-pending video and queues a fresh attempt.
func (s *Service) Reprocess(ctx context.Context, videoID int64) error {
	if err := s.videos.ResetForReprocess(ctx, videoID); err != nil {
		return err
	}
	if err := s.queue.EnqueueProcessVideo(ctx, videoID); err != nil {
		return fmt.Errorf("failed to enqueue reprocessing: %w", err)
	}

	s.log.Info("Video queued for reprocessing", zap.Int64("video_id", videoID))
	return nil
}
