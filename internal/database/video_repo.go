package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vidobj/vidobj/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status update would skip a
// lifecycle state.
var ErrInvalidTransition = errors.New("invalid status transition")

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new video record, unless one with the same content hash
// already exists. In that case the existing record is loaded into video and
// true is returned; no new record is created. The unique index on
// content_hash backstops the check-then-create sequence against concurrent
// identical submissions.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) (bool, error) {
	existing, err := r.GetByHash(ctx, video.ContentHash)
	if err == nil {
		*video = *existing
		return true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	query := `
		INSERT INTO videos (content_hash, origin_file_id, user_id, blob_url, status, upload_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	insertErr := r.db.conn.QueryRowContext(ctx, query,
		video.ContentHash,
		video.OriginFileID,
		video.UserID,
		video.BlobURL,
		string(video.Status),
		video.UploadTime,
	).Scan(&video.ID)
	if insertErr != nil {
		// Lost the race against a concurrent identical submission: the
		// unique hash index rejected the insert, so resolve to the winner.
		if existing, lookupErr := r.GetByHash(ctx, video.ContentHash); lookupErr == nil {
			*video = *existing
			return true, nil
		}
		return false, fmt.Errorf("failed to insert video: %w", insertErr)
	}

	return false, nil
}

func (r *VideoRepository) Get(ctx context.Context, id int64) (*models.Video, error) {
	query := `
		SELECT id, content_hash, origin_file_id, user_id, blob_url, status, upload_time
		FROM videos
		WHERE id = $1`

	return r.scanVideo(r.db.conn.QueryRowContext(ctx, query, id))
}

func (r *VideoRepository) GetByHash(ctx context.Context, hash string) (*models.Video, error) {
	query := `
		SELECT id, content_hash, origin_file_id, user_id, blob_url, status, upload_time
		FROM videos
		WHERE content_hash = $1`

	return r.scanVideo(r.db.conn.QueryRowContext(ctx, query, hash))
}

// GetByIDs loads the given videos; missing ids are silently omitted.
func (r *VideoRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Video, error) {
	if len(ids) == 0 {
		return []models.Video{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, content_hash, origin_file_id, user_id, blob_url, status, upload_time
		FROM videos
		WHERE id IN (%s)`, strings.Join(placeholders, ", "))

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		v, err := scanVideoRow(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}

	return videos, rows.Err()
}

// Delete removes a video record, freeing its content hash. Used to unwind
// a submission whose upload or enqueue failed before the record became
// processable.
func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return checkAffected(res)
}

// SetBlobURL records the blob location once the upload completed.
func (r *VideoRepository) SetBlobURL(ctx context.Context, id int64, url string) error {
	res, err := r.db.conn.ExecContext(ctx, `UPDATE videos SET blob_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("failed to set blob url: %w", err)
	}
	return checkAffected(res)
}

// UpdateStatus performs one pipeline transition. Transitions that would
// skip a lifecycle state are rejected.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id int64, to models.Status) error {
	video, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if !video.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, video.Status, to)
	}

	// Guard on the observed status so a concurrent transition loses cleanly.
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE videos SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(video.Status))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	return nil
}

// ResetForReprocess is the external escape hatch: it returns any
// non-pending video (terminal or stuck in processing) to pending so it can
// be resubmitted.
func (r *VideoRepository) ResetForReprocess(ctx context.Context, id int64) error {
	video, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if video.Status == models.StatusPending {
		return fmt.Errorf("%w: video %d already pending", ErrInvalidTransition, id)
	}

	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE videos SET status = $1 WHERE id = $2`,
		string(models.StatusPending), id)
	if err != nil {
		return fmt.Errorf("failed to reset video: %w", err)
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *VideoRepository) scanVideo(row rowScanner) (*models.Video, error) {
	return scanVideoRow(row)
}

func scanVideoRow(row rowScanner) (*models.Video, error) {
	var v models.Video
	var origin sql.NullString
	var status string

	err := row.Scan(&v.ID, &v.ContentHash, &origin, &v.UserID, &v.BlobURL, &status, &v.UploadTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	v.OriginFileID = origin.String
	v.Status = models.Status(status)
	return &v, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
