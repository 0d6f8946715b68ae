package database

import (
	"context"
	"fmt"

	"github.com/vidobj/vidobj/internal/models"
)

type AggregateRepository struct {
	db *DB
}

func NewAggregateRepository(db *DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// LabelMatch is one aggregate row matching a label search, reduced to what
// the ranker needs.
type LabelMatch struct {
	VideoID    int64
	BestSecond float64
}

// ReplaceForVideo atomically swaps the video's aggregate set: previous rows
// are deleted and the new set inserted in one transaction, so re-running
// the pipeline for the same video never accumulates duplicates.
func (r *AggregateRepository) ReplaceForVideo(ctx context.Context, videoID int64, aggregates []models.LabelAggregate) error {
	if _, err := NewVideoRepository(r.db).Get(ctx, videoID); err != nil {
		return fmt.Errorf("cannot replace aggregates: %w", err)
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM label_aggregates WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to delete previous aggregates: %w", err)
	}

	query := `
		INSERT INTO label_aggregates (video_id, label, total_count, avg_confidence, best_confidence, best_second)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, agg := range aggregates {
		if _, err := tx.ExecContext(ctx, query,
			videoID,
			agg.Label,
			agg.TotalCount,
			agg.AvgConfidence,
			agg.BestConfidence,
			agg.BestSecond,
		); err != nil {
			return fmt.Errorf("failed to insert aggregate for %q: %w", agg.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregates: %w", err)
	}

	return nil
}

func (r *AggregateRepository) ListByVideo(ctx context.Context, videoID int64) ([]models.LabelAggregate, error) {
	query := `
		SELECT id, video_id, label, total_count, avg_confidence, best_confidence, best_second
		FROM label_aggregates
		WHERE video_id = $1
		ORDER BY label`

	rows, err := r.db.conn.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	aggregates := []models.LabelAggregate{}
	for rows.Next() {
		var agg models.LabelAggregate
		if err := rows.Scan(&agg.ID, &agg.VideoID, &agg.Label, &agg.TotalCount,
			&agg.AvgConfidence, &agg.BestConfidence, &agg.BestSecond); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		aggregates = append(aggregates, agg)
	}

	return aggregates, rows.Err()
}

// FindByLabel returns (video id, best second) pairs for every aggregate
// whose label contains the query substring, case-insensitively.
func (r *AggregateRepository) FindByLabel(ctx context.Context, query string) ([]LabelMatch, error) {
	pattern := "%" + query + "%"

	var sqlQuery string
	if r.db.dbType == "postgres" {
		sqlQuery = `SELECT video_id, best_second FROM label_aggregates WHERE label ILIKE $1`
	} else {
		sqlQuery = `SELECT video_id, best_second FROM label_aggregates WHERE LOWER(label) LIKE LOWER($1)`
	}

	rows, err := r.db.conn.QueryContext(ctx, sqlQuery, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search labels: %w", err)
	}
	defer rows.Close()

	var matches []LabelMatch
	for rows.Next() {
		var m LabelMatch
		if err := rows.Scan(&m.VideoID, &m.BestSecond); err != nil {
			return nil, fmt.Errorf("failed to scan label match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
