package database

import (
	"context"
	"fmt"
)

var _ WeightRepository = (*WeightRepo)(nil)

// WeightRepo reads the ranking weight coefficients. The pipeline never writes
// them; tuning happens out of band.
type WeightRepo struct {
	db *DB
}

func NewWeightRepo(db *DB) *WeightRepo {
	return &WeightRepo{db: db}
}

func (r *WeightRepo) GetWeights(ctx context.Context) (Weight, error) {
	var w Weight
	err := r.db.QueryRowContext(ctx, `
		SELECT post_count_weight, avg_likes_weight, avg_comments_weight, avg_reposts_weight
		FROM weights WHERE id = 1
	`).Scan(&w.PostCountWeight, &w.AvgLikesWeight, &w.AvgCommentsWeight, &w.AvgRepostsWeight)
	if err != nil {
		return Weight{}, fmt.Errorf("failed to get weights: %w", err)
	}

	return w, nil
}
