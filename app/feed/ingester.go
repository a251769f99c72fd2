package feed

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/trendline-app/trendline/app/analysis"
	"github.com/trendline-app/trendline/app/database"
)

// Ingester admits parsed entries into storage: recency filter, dedup by post
// identity, topic create-or-merge, sentiment before commit. One transaction
// per post covers the post insert and all of its topic mutations, so a
// mid-admission failure leaves no partial state.
type Ingester struct {
	db            *database.DB
	postRepo      database.PostRepository
	topicRepo     database.TopicRepository
	analyzer      analysis.SentimentAnalyzer
	parser        *Parser
	recencyWindow time.Duration
	now           func() time.Time
}

func NewIngester(db *database.DB, postRepo database.PostRepository,
	topicRepo database.TopicRepository, analyzer analysis.SentimentAnalyzer,
	recencyHours int) *Ingester {
	return &Ingester{
		db:            db,
		postRepo:      postRepo,
		topicRepo:     topicRepo,
		analyzer:      analyzer,
		parser:        NewParser(),
		recencyWindow: time.Duration(recencyHours) * time.Hour,
		now:           time.Now,
	}
}

// Run ingests one raw payload and returns per-payload accounting. A malformed
// payload fails the whole poll (ParseError); a bad entry only costs that
// entry.
func (in *Ingester) Run(ctx context.Context, payload []byte) (Stats, error) {
	entries, err := in.parser.Run(payload)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	cutoff := in.now().Add(-in.recencyWindow)

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if entry.PublishedAt.Before(cutoff) {
			stats.Skipped++
			continue
		}

		admitted, err := in.admit(ctx, entry)
		if err != nil {
			slog.Warn("Post admission failed", "post_id", entry.ID, "error", err)
			stats.Failed++
			continue
		}

		if admitted {
			stats.Admitted++
		} else {
			stats.Duplicates++
		}
	}

	return stats, nil
}

func (in *Ingester) admit(ctx context.Context, entry Entry) (bool, error) {
	// Cheap pre-check; the conditional insert below is the authoritative
	// dedup guard under concurrency.
	exists, err := in.postRepo.Exists(ctx, entry.ID)
	if err != nil {
		return false, &PersistenceError{PostID: entry.ID, Err: err}
	}
	if exists {
		return false, nil
	}

	post := database.Post{
		ID:            entry.ID,
		Author:        entry.Author,
		Text:          entry.Text,
		PublishedAt:   entry.PublishedAt,
		RepostsCount:  entry.RepostsCount,
		CommentsCount: entry.CommentsCount,
		LikesCount:    entry.LikesCount,
	}
	for _, ref := range entry.Topics {
		post.TopicUUIDs = append(post.TopicUUIDs, ref.UUID)
	}

	// Sentiment is computed synchronously before the commit. An analyzer
	// outage must not drop the post; it is admitted without an emotion
	// vector instead.
	if in.analyzer != nil {
		emotion, err := in.analyzer.Analyze(ctx, analysis.Tokenize(entry.Text))
		if err != nil {
			slog.Warn("Sentiment analysis failed, admitting without emotion", "post_id", entry.ID, "error", err)
		} else {
			post.Emotion = emotion
		}
	}

	admitted := false
	err = in.db.WithTx(ctx, func(tx *sql.Tx) error {
		inserted, err := in.postRepo.InsertIfAbsent(ctx, tx, post)
		if err != nil {
			return err
		}
		if !inserted {
			// Lost the race to another worker, normal no-op path.
			return nil
		}
		admitted = true

		for _, ref := range entry.Topics {
			outcome, err := in.topicRepo.ApplyPost(ctx, tx, ref, post)
			if err != nil {
				return err
			}
			slog.Debug("Topic applied", "topic", ref.UUID, "outcome", outcome.String(), "post_id", post.ID)
		}

		return nil
	})
	if err != nil {
		return false, &PersistenceError{PostID: entry.ID, Err: err}
	}

	return admitted, nil
}
