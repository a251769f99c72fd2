package feed

import (
	"time"

	"github.com/trendline-app/trendline/app/database"
)

// Wire shapes of the source timeline API.

type rawPayload struct {
	Statuses []rawStatus `json:"statuses"`
}

type rawStatus struct {
	ID             int64      `json:"id"`
	User           rawUser    `json:"user"`
	TextRaw        string     `json:"text_raw"`
	CreatedAt      string     `json:"created_at"`
	RepostsCount   int        `json:"reposts_count"`
	CommentsCount  int        `json:"comments_count"`
	AttitudesCount int        `json:"attitudes_count"`
	TopicStruct    []rawTopic `json:"topic_struct"`
}

type rawUser struct {
	ScreenName string `json:"screen_name"`
}

type rawTopic struct {
	TopicTitle string       `json:"topic_title"`
	ActionLog  rawActionLog `json:"actionlog"`
}

type rawActionLog struct {
	UUID string `json:"uuid"`
}

// Entry is a parsed, cleaned post entry ready for admission.
type Entry struct {
	ID            int64
	Author        string
	Text          string
	PublishedAt   time.Time
	RepostsCount  int
	CommentsCount int
	LikesCount    int
	Topics        []database.TopicRef
}

// Stats accounts one ingestion pass over a payload.
type Stats struct {
	Admitted   int
	Duplicates int
	Skipped    int
	Failed     int
}

func (s *Stats) Add(other Stats) {
	s.Admitted += other.Admitted
	s.Duplicates += other.Duplicates
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}
