package database

import (
	"encoding/json"
	"time"
)

// Post is a single ingested post with its point-in-time engagement counters
// and derived annotations. The id is assigned by the source and globally
// unique, which is what makes insert-if-absent a sufficient dedup guard.
type Post struct {
	ID            int64
	Author        string
	Text          string
	PublishedAt   time.Time
	RepostsCount  int
	CommentsCount int
	LikesCount    int
	TopicUUIDs    []string
	Keywords      []string
	Emotion       json.RawMessage
	CreatedAt     time.Time
}

// Topic aggregates every post referencing a shared subject tag. post_count
// always equals len(PostIDs); averages are running totals divided by
// post_count so each admission costs O(1).
type Topic struct {
	UUID          string
	Title         string
	Stage         int
	PostCount     int
	PostIDs       []int64
	Keywords      []string
	Emotion       json.RawMessage
	TotalLikes    float64
	TotalComments float64
	TotalReposts  float64
	AvgLikes      float64
	AvgComments   float64
	AvgReposts    float64
	HotHourly     map[string]float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Score computes the topic ranking score from the weight coefficients.
// Ranking itself runs outside the pipeline; this is the shared formula.
func (t *Topic) Score(w Weight) float64 {
	return w.PostCountWeight*float64(t.PostCount) +
		w.AvgLikesWeight*t.AvgLikes +
		w.AvgCommentsWeight*t.AvgComments +
		w.AvgRepostsWeight*t.AvgReposts
}

// TopicRef is a topic reference embedded in a raw post entry.
type TopicRef struct {
	UUID  string
	Title string
}

// Channel is a named feed source used to construct fetch URLs.
type Channel struct {
	GID         string `yaml:"gid"`
	Title       string `yaml:"title"`
	ContainerID string `yaml:"containerid"`
	UpdatedAt   time.Time
}

// Weight holds the scalar coefficients used to rank topics. Read-only from
// the pipeline's perspective.
type Weight struct {
	PostCountWeight   float64
	AvgLikesWeight    float64
	AvgCommentsWeight float64
	AvgRepostsWeight  float64
}

// TopicOutcome is the tagged result of a topic create-or-update.
type TopicOutcome int

const (
	// TopicCreated: the topic did not exist and was created for this post.
	TopicCreated TopicOutcome = iota
	// TopicUpdated: the topic existed and the post was merged into it.
	TopicUpdated
	// TopicUnchanged: the post was already associated, nothing to do.
	TopicUnchanged
)

func (o TopicOutcome) String() string {
	switch o {
	case TopicCreated:
		return "created"
	case TopicUpdated:
		return "updated"
	case TopicUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// HourBucket returns the absolute UTC hour bucket key for a publish time.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}
