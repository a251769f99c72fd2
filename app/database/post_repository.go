package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ PostRepository = (*PostRepo)(nil)

// PostRepo handles database operations for posts
type PostRepo struct {
	db *DB
}

func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

// InsertIfAbsent inserts a post unless one with the same id already exists.
// Returns true if the post was admitted. The conditional insert is what makes
// ingestion idempotent even when two workers fetch the same post from
// overlapping polls.
func (r *PostRepo) InsertIfAbsent(ctx context.Context, tx *sql.Tx, post Post) (bool, error) {
	topics, err := marshalJSONArray(post.TopicUUIDs)
	if err != nil {
		return false, fmt.Errorf("failed to encode topic list: %w", err)
	}
	keywords, err := marshalJSONArray(post.Keywords)
	if err != nil {
		return false, fmt.Errorf("failed to encode keyword list: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (id, author, text, published_at, reposts_count, comments_count, likes_count, topics, keywords, emotion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, post.ID, post.Author, post.Text, post.PublishedAt.UTC(),
		post.RepostsCount, post.CommentsCount, post.LikesCount,
		topics, keywords, nullableJSON(post.Emotion))
	if err != nil {
		return false, fmt.Errorf("failed to insert post: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows > 0, nil
}

func (r *PostRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return true, nil
}

func (r *PostRepo) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, author, text, published_at, reposts_count, comments_count, likes_count,
		       topics, keywords, emotion, created_at
		FROM posts WHERE id = ?
	`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// GetMissingKeywords returns posts whose keyword list is still empty, the
// enrichment pass works through these. A non-positive limit returns all.
func (r *PostRepo) GetMissingKeywords(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author, text, published_at, reposts_count, comments_count, likes_count,
		       topics, keywords, emotion, created_at
		FROM posts
		WHERE keywords = '[]'
		ORDER BY id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts missing keywords: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepo) UpdateKeywords(ctx context.Context, id int64, keywords []string) error {
	encoded, err := marshalJSONArray(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keyword list: %w", err)
	}

	_, err = r.db.ExecContext(ctx, "UPDATE posts SET keywords = ? WHERE id = ?", encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update post keywords: %w", err)
	}

	return nil
}

func (r *PostRepo) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*Post, error) {
	var post Post
	var topics, keywords string
	var emotion sql.NullString

	err := row.Scan(&post.ID, &post.Author, &post.Text, &post.PublishedAt,
		&post.RepostsCount, &post.CommentsCount, &post.LikesCount,
		&topics, &keywords, &emotion, &post.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(topics), &post.TopicUUIDs); err != nil {
		return nil, fmt.Errorf("failed to decode topic list: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &post.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keyword list: %w", err)
	}
	if emotion.Valid {
		post.Emotion = json.RawMessage(emotion.String)
	}

	return &post, nil
}

// marshalJSONArray encodes a slice as JSON, mapping nil to an empty array so
// the "list is empty" enrichment check stays a plain string comparison.
func marshalJSONArray(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
