package tasks

import (
	"sync/atomic"
	"time"

	"github.com/trendline-app/trendline/app/feed"
)

// CycleStats collects counters across the workers of one ingestion cycle.
type CycleStats struct {
	Polls          atomic.Int64
	FailedPolls    atomic.Int64
	Admitted       atomic.Int64
	Duplicates     atomic.Int64
	Skipped        atomic.Int64
	Failed         atomic.Int64
	EnrichedPosts  atomic.Int64
	EnrichedTopics atomic.Int64
}

func (s *CycleStats) AddIngest(st feed.Stats) {
	s.Admitted.Add(int64(st.Admitted))
	s.Duplicates.Add(int64(st.Duplicates))
	s.Skipped.Add(int64(st.Skipped))
	s.Failed.Add(int64(st.Failed))
}

func (s *CycleStats) Snapshot() CycleSummary {
	return CycleSummary{
		Polls:          s.Polls.Load(),
		FailedPolls:    s.FailedPolls.Load(),
		Admitted:       s.Admitted.Load(),
		Duplicates:     s.Duplicates.Load(),
		Skipped:        s.Skipped.Load(),
		Failed:         s.Failed.Load(),
		EnrichedPosts:  s.EnrichedPosts.Load(),
		EnrichedTopics: s.EnrichedTopics.Load(),
	}
}

// CycleSummary is the user-visible accounting of one ingestion cycle.
type CycleSummary struct {
	Polls          int64         `json:"polls"`
	FailedPolls    int64         `json:"failed_polls"`
	Admitted       int64         `json:"admitted"`
	Duplicates     int64         `json:"duplicates"`
	Skipped        int64         `json:"skipped"`
	Failed         int64         `json:"failed"`
	EnrichedPosts  int64         `json:"enriched_posts"`
	EnrichedTopics int64         `json:"enriched_topics"`
	Duration       time.Duration `json:"duration"`
	FinishedAt     time.Time     `json:"finished_at"`
}
