// Package search finds videos by the objects detected in them.
package search

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/models"
)

// MaxResults caps how many distinct videos a query returns.
const MaxResults = 3

type VideoStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]models.Video, error)
}

type AggregateStore interface {
	FindByLabel(ctx context.Context, query string) ([]database.LabelMatch, error)
}

// Result pairs a matched video with the moment its best detection occurred.
type Result struct {
	Video      models.Video `json:"video"`
	BestSecond float64      `json:"best_second"`
}

type Service struct {
	videos     VideoStore
	aggregates AggregateStore
}

func NewService(videos VideoStore, aggregates AggregateStore) *Service {
	return &Service{videos: videos, aggregates: aggregates}
}

// Search returns up to MaxResults videos whose detected labels contain the
// query substring. Matches are shuffled first, so repeated identical queries
// can surface different videos.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return []Result{}, nil
	}

	matches, err := s.aggregates.FindByLabel(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search labels: %w", err)
	}

	rand.Shuffle(len(matches), func(i, j int) {
		matches[i], matches[j] = matches[j], matches[i]
	})

	picked := make([]database.LabelMatch, 0, MaxResults)
	seen := make(map[int64]bool)
	for _, m := range matches {
		if seen[m.VideoID] {
			continue
		}
		seen[m.VideoID] = true
		picked = append(picked, m)
		if len(picked) == MaxResults {
			break
		}
	}
	if len(picked) == 0 {
		return []Result{}, nil
	}

	ids := make([]int64, len(picked))
	for i, m := range picked {
		ids[i] = m.VideoID
	}
	videos, err := s.videos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched videos: %w", err)
	}
	byID := make(map[int64]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	results := make([]Result, 0, len(picked))
	for _, m := range picked {
		v, ok := byID[m.VideoID]
		if !ok {
			continue
		}
		results = append(results, Result{Video: v, BestSecond: m.BestSecond})
	}
	return results, nil
}
