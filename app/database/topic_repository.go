package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
)

var _ TopicRepository = (*TopicRepo)(nil)

// TopicRepo handles database operations for topics
type TopicRepo struct {
	db *DB
}

func NewTopicRepo(db *DB) *TopicRepo {
	return &TopicRepo{db: db}
}

// ApplyPost merges a post into the topic named by ref, creating the topic if
// it does not exist yet. The whole read-modify-write runs on the caller's
// transaction, which holds the database write lock, so two workers admitting
// posts against the same topic serialize instead of losing an update.
func (r *TopicRepo) ApplyPost(ctx context.Context, tx *sql.Tx, ref TopicRef, post Post) (TopicOutcome, error) {
	var postCount int
	var postIDsRaw, hotHourlyRaw string
	var totalLikes, totalComments, totalReposts float64

	err := tx.QueryRowContext(ctx, `
		SELECT post_count, post_ids, total_likes, total_comments, total_reposts, hot_hourly
		FROM topics WHERE uuid = ?
	`, ref.UUID).Scan(&postCount, &postIDsRaw, &totalLikes, &totalComments, &totalReposts, &hotHourlyRaw)

	if err == sql.ErrNoRows {
		return r.create(ctx, tx, ref, post)
	}
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to read topic %s: %w", ref.UUID, err)
	}

	var postIDs []int64
	if err := json.Unmarshal([]byte(postIDsRaw), &postIDs); err != nil {
		return TopicUnchanged, fmt.Errorf("failed to decode post id list for topic %s: %w", ref.UUID, err)
	}

	// Guards against a post double-counting on the same topic, e.g. when a
	// raw entry carries the same topic reference twice.
	if slices.Contains(postIDs, post.ID) {
		return TopicUnchanged, nil
	}

	hotHourly := map[string]float64{}
	if err := json.Unmarshal([]byte(hotHourlyRaw), &hotHourly); err != nil {
		return TopicUnchanged, fmt.Errorf("failed to decode hotness series for topic %s: %w", ref.UUID, err)
	}

	postIDs = append(postIDs, post.ID)
	postCount++
	totalLikes += float64(post.LikesCount)
	totalComments += float64(post.CommentsCount)
	totalReposts += float64(post.RepostsCount)
	hotHourly[HourBucket(post.PublishedAt)] += engagementMass(post)

	postIDsOut, err := marshalJSONArray(postIDs)
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to encode post id list: %w", err)
	}
	hotHourlyOut, err := json.Marshal(hotHourly)
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to encode hotness series: %w", err)
	}

	n := float64(postCount)
	_, err = tx.ExecContext(ctx, `
		UPDATE topics
		SET post_count = ?, post_ids = ?,
		    total_likes = ?, total_comments = ?, total_reposts = ?,
		    avg_likes = ?, avg_comments = ?, avg_reposts = ?,
		    hot_hourly = ?, updated_at = CURRENT_TIMESTAMP
		WHERE uuid = ?
	`, postCount, postIDsOut,
		totalLikes, totalComments, totalReposts,
		totalLikes/n, totalComments/n, totalReposts/n,
		string(hotHourlyOut), ref.UUID)
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to update topic %s: %w", ref.UUID, err)
	}

	return TopicUpdated, nil
}

func (r *TopicRepo) create(ctx context.Context, tx *sql.Tx, ref TopicRef, post Post) (TopicOutcome, error) {
	postIDs, err := marshalJSONArray([]int64{post.ID})
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to encode post id list: %w", err)
	}
	hotHourly, err := json.Marshal(map[string]float64{
		HourBucket(post.PublishedAt): engagementMass(post),
	})
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to encode hotness series: %w", err)
	}

	likes := float64(post.LikesCount)
	comments := float64(post.CommentsCount)
	reposts := float64(post.RepostsCount)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO topics (uuid, title, stage, post_count, post_ids,
		                    total_likes, total_comments, total_reposts,
		                    avg_likes, avg_comments, avg_reposts, hot_hourly)
		VALUES (?, ?, 0, 1, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ref.UUID, ref.Title, postIDs,
		likes, comments, reposts,
		likes, comments, reposts, string(hotHourly))
	if err != nil {
		return TopicUnchanged, fmt.Errorf("failed to create topic %s: %w", ref.UUID, err)
	}

	return TopicCreated, nil
}

func (r *TopicRepo) GetTopic(ctx context.Context, uuid string) (*Topic, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT uuid, title, stage, post_count, post_ids, keywords, emotion,
		       total_likes, total_comments, total_reposts,
		       avg_likes, avg_comments, avg_reposts, hot_hourly,
		       created_at, updated_at
		FROM topics WHERE uuid = ?
	`, uuid)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return topic, nil
}

func (r *TopicRepo) GetMissingKeywords(ctx context.Context, limit int) ([]Topic, error) {
	return r.getWhere(ctx, "keywords = '[]'", limit)
}

func (r *TopicRepo) GetMissingEmotion(ctx context.Context, limit int) ([]Topic, error) {
	return r.getWhere(ctx, "emotion IS NULL", limit)
}

func (r *TopicRepo) getWhere(ctx context.Context, cond string, limit int) ([]Topic, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, title, stage, post_count, post_ids, keywords, emotion,
		       total_likes, total_comments, total_reposts,
		       avg_likes, avg_comments, avg_reposts, hot_hourly,
		       created_at, updated_at
		FROM topics WHERE `+cond+` ORDER BY uuid LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *TopicRepo) UpdateKeywords(ctx context.Context, uuid string, keywords []string) error {
	encoded, err := marshalJSONArray(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keyword list: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE topics SET keywords = ?, updated_at = CURRENT_TIMESTAMP WHERE uuid = ?
	`, encoded, uuid)
	if err != nil {
		return fmt.Errorf("failed to update topic keywords: %w", err)
	}

	return nil
}

func (r *TopicRepo) UpdateEmotion(ctx context.Context, uuid string, emotion json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE topics SET emotion = ?, updated_at = CURRENT_TIMESTAMP WHERE uuid = ?
	`, nullableJSON(emotion), uuid)
	if err != nil {
		return fmt.Errorf("failed to update topic emotion: %w", err)
	}

	return nil
}

func (r *TopicRepo) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get topic count: %w", err)
	}
	return count, nil
}

func scanTopic(row rowScanner) (*Topic, error) {
	var topic Topic
	var postIDs, keywords, hotHourly string
	var emotion sql.NullString

	err := row.Scan(&topic.UUID, &topic.Title, &topic.Stage, &topic.PostCount,
		&postIDs, &keywords, &emotion,
		&topic.TotalLikes, &topic.TotalComments, &topic.TotalReposts,
		&topic.AvgLikes, &topic.AvgComments, &topic.AvgReposts,
		&hotHourly, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(postIDs), &topic.PostIDs); err != nil {
		return nil, fmt.Errorf("failed to decode post id list: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &topic.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keyword list: %w", err)
	}
	if err := json.Unmarshal([]byte(hotHourly), &topic.HotHourly); err != nil {
		return nil, fmt.Errorf("failed to decode hotness series: %w", err)
	}
	if emotion.Valid {
		topic.Emotion = json.RawMessage(emotion.String)
	}

	return &topic, nil
}

// engagementMass is a post's contribution to its publish-hour hotness bucket.
func engagementMass(post Post) float64 {
	return 1 + float64(post.LikesCount+post.CommentsCount+post.RepostsCount)
}
