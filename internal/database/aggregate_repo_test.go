package database

import (
	"context"
	"errors"
	"testing"

	"github.com/vidobj/vidobj/internal/models"
)

func createProcessedVideo(t *testing.T, repo *VideoRepository, hash string) int64 {
	t.Helper()

	video := newTestVideo(hash)
	if _, err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("Failed to create video: %v", err)
	}
	return video.ID
}

func TestAggregateRepository_ReplaceAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	videos := NewVideoRepository(db)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	videoID := createProcessedVideo(t, videos, "agghash")

	aggregates := []models.LabelAggregate{
		{Label: "person", TotalCount: 2, AvgConfidence: 0.85, BestConfidence: 0.9, BestSecond: 0.5},
		{Label: "car", TotalCount: 1, AvgConfidence: 0.4, BestConfidence: 0.4, BestSecond: 0.3},
	}

	if err := repo.ReplaceForVideo(ctx, videoID, aggregates); err != nil {
		t.Fatalf("Failed to replace aggregates: %v", err)
	}

	listed, err := repo.ListByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("Failed to list aggregates: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 aggregates, got %d", len(listed))
	}

	// Ordered by label: car before person.
	if listed[0].Label != "car" || listed[1].Label != "person" {
		t.Errorf("Unexpected label order: %s, %s", listed[0].Label, listed[1].Label)
	}
	if listed[1].TotalCount != 2 || listed[1].AvgConfidence != 0.85 {
		t.Errorf("Unexpected person aggregate: %+v", listed[1])
	}
}

func TestAggregateRepository_ReplaceIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	videos := NewVideoRepository(db)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	videoID := createProcessedVideo(t, videos, "idemhash")

	aggregates := []models.LabelAggregate{
		{Label: "dog", TotalCount: 3, AvgConfidence: 0.7, BestConfidence: 0.8, BestSecond: 1.2},
	}

	for i := 0; i < 3; i++ {
		if err := repo.ReplaceForVideo(ctx, videoID, aggregates); err != nil {
			t.Fatalf("Replace run %d failed: %v", i, err)
		}
	}

	listed, err := repo.ListByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("Failed to list aggregates: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected 1 aggregate after repeated replace, got %d", len(listed))
	}
}

func TestAggregateRepository_ReplaceEmptiesPriorSet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	videos := NewVideoRepository(db)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	videoID := createProcessedVideo(t, videos, "swaphash")

	first := []models.LabelAggregate{
		{Label: "cat", TotalCount: 5, AvgConfidence: 0.6, BestConfidence: 0.9, BestSecond: 2.0},
		{Label: "bird", TotalCount: 1, AvgConfidence: 0.5, BestConfidence: 0.5, BestSecond: 0.1},
	}
	if err := repo.ReplaceForVideo(ctx, videoID, first); err != nil {
		t.Fatalf("First replace failed: %v", err)
	}

	second := []models.LabelAggregate{
		{Label: "horse", TotalCount: 2, AvgConfidence: 0.8, BestConfidence: 0.85, BestSecond: 4.4},
	}
	if err := repo.ReplaceForVideo(ctx, videoID, second); err != nil {
		t.Fatalf("Second replace failed: %v", err)
	}

	listed, err := repo.ListByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("Failed to list aggregates: %v", err)
	}
	if len(listed) != 1 || listed[0].Label != "horse" {
		t.Errorf("Expected only the new set, got %+v", listed)
	}
}

func TestAggregateRepository_ReplaceMissingVideo(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAggregateRepository(db)

	err := repo.ReplaceForVideo(context.Background(), 12345, []models.LabelAggregate{
		{Label: "ghost", TotalCount: 1, AvgConfidence: 1, BestConfidence: 1, BestSecond: 1},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing video, got %v", err)
	}
}

func TestAggregateRepository_FindByLabel(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	videos := NewVideoRepository(db)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	v1 := createProcessedVideo(t, videos, "findhash1")
	v2 := createProcessedVideo(t, videos, "findhash2")

	if err := repo.ReplaceForVideo(ctx, v1, []models.LabelAggregate{
		{Label: "person", TotalCount: 2, AvgConfidence: 0.8, BestConfidence: 0.9, BestSecond: 1.5},
	}); err != nil {
		t.Fatalf("Failed to seed v1: %v", err)
	}
	if err := repo.ReplaceForVideo(ctx, v2, []models.LabelAggregate{
		{Label: "Person", TotalCount: 1, AvgConfidence: 0.7, BestConfidence: 0.7, BestSecond: 3.0},
		{Label: "car", TotalCount: 4, AvgConfidence: 0.5, BestConfidence: 0.6, BestSecond: 2.0},
	}); err != nil {
		t.Fatalf("Failed to seed v2: %v", err)
	}

	matches, err := repo.FindByLabel(ctx, "perso")
	if err != nil {
		t.Fatalf("Failed to search labels: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Expected 2 case-insensitive matches, got %d", len(matches))
	}

	matches, err = repo.FindByLabel(ctx, "bicycle")
	if err != nil {
		t.Fatalf("Failed to search labels: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %d", len(matches))
	}
}
