package database

import (
	"context"
	"database/sql"
	"encoding/json"
)

type PostRepository interface {
	InsertIfAbsent(ctx context.Context, tx *sql.Tx, post Post) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	GetMissingKeywords(ctx context.Context, limit int) ([]Post, error)
	UpdateKeywords(ctx context.Context, id int64, keywords []string) error
	GetCount(ctx context.Context) (int, error)
}

type TopicRepository interface {
	ApplyPost(ctx context.Context, tx *sql.Tx, ref TopicRef, post Post) (TopicOutcome, error)
	GetTopic(ctx context.Context, uuid string) (*Topic, error)
	GetMissingKeywords(ctx context.Context, limit int) ([]Topic, error)
	GetMissingEmotion(ctx context.Context, limit int) ([]Topic, error)
	UpdateKeywords(ctx context.Context, uuid string, keywords []string) error
	UpdateEmotion(ctx context.Context, uuid string, emotion json.RawMessage) error
	GetCount(ctx context.Context) (int, error)
}

type ChannelRepository interface {
	Upsert(ctx context.Context, channel Channel) error
	GetChannels(ctx context.Context) ([]Channel, error)
	GetCount(ctx context.Context) (int, error)
}

type WeightRepository interface {
	GetWeights(ctx context.Context) (Weight, error)
}
