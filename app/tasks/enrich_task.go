package tasks

import (
	"context"
	"log/slog"

	"github.com/trendline-app/trendline/app/analysis"
	"github.com/trendline-app/trendline/app/database"
)

const (
	postKeywordCount  = 10
	topicKeywordCount = 5
)

// EnrichTask attaches keywords (and, for topics, an emotion summary) to every
// record still missing them. The "is it empty" check makes the pass
// idempotent: re-running never touches an already-enriched record.
type EnrichTask struct {
	Task
	postRepo  database.PostRepository
	topicRepo database.TopicRepository
	extractor analysis.KeywordExtractor
	analyzer  analysis.SentimentAnalyzer
	stats     *CycleStats
}

func NewEnrichTask(postRepo database.PostRepository, topicRepo database.TopicRepository,
	extractor analysis.KeywordExtractor, analyzer analysis.SentimentAnalyzer, stats *CycleStats) *EnrichTask {
	return &EnrichTask{
		Task:      NewTask(TaskTypeEnrich, "enrichment"),
		postRepo:  postRepo,
		topicRepo: topicRepo,
		extractor: extractor,
		analyzer:  analyzer,
		stats:     stats,
	}
}

func (t *EnrichTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	posts, err := t.enrichPosts(ctx)
	if err != nil {
		return err
	}

	topics, err := t.enrichTopics(ctx)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "Enrich",
		"duration", t.GetDuration(),
		"posts", posts,
		"topics", topics)

	return nil
}

func (t *EnrichTask) enrichPosts(ctx context.Context) (int, error) {
	posts, err := t.postRepo.GetMissingKeywords(ctx, 0)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, post := range posts {
		select {
		case <-ctx.Done():
			return enriched, ctx.Err()
		default:
		}

		keywords, err := t.extractor.Extract(ctx, post.Text, postKeywordCount)
		if err != nil {
			slog.Warn("Keyword extraction failed", "post_id", post.ID, "error", err)
			continue
		}
		if len(keywords) == 0 {
			continue
		}

		if err := t.postRepo.UpdateKeywords(ctx, post.ID, keywords); err != nil {
			slog.Warn("Failed to store post keywords", "post_id", post.ID, "error", err)
			continue
		}
		enriched++
		if t.stats != nil {
			t.stats.EnrichedPosts.Add(1)
		}
	}

	return enriched, nil
}

func (t *EnrichTask) enrichTopics(ctx context.Context) (int, error) {
	topics, err := t.topicRepo.GetMissingKeywords(ctx, 0)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, topic := range topics {
		select {
		case <-ctx.Done():
			return enriched, ctx.Err()
		default:
		}

		keywords, err := t.extractor.Extract(ctx, topic.Title, topicKeywordCount)
		if err != nil {
			slog.Warn("Keyword extraction failed", "topic", topic.UUID, "error", err)
			continue
		}
		if len(keywords) == 0 {
			continue
		}

		if err := t.topicRepo.UpdateKeywords(ctx, topic.UUID, keywords); err != nil {
			slog.Warn("Failed to store topic keywords", "topic", topic.UUID, "error", err)
			continue
		}
		enriched++
		if t.stats != nil {
			t.stats.EnrichedTopics.Add(1)
		}
	}

	if err := t.enrichTopicEmotion(ctx); err != nil {
		return enriched, err
	}

	return enriched, nil
}

func (t *EnrichTask) enrichTopicEmotion(ctx context.Context) error {
	topics, err := t.topicRepo.GetMissingEmotion(ctx, 0)
	if err != nil {
		return err
	}

	for _, topic := range topics {
		emotion, err := t.analyzer.Analyze(ctx, analysis.Tokenize(topic.Title))
		if err != nil {
			slog.Warn("Topic sentiment analysis failed", "topic", topic.UUID, "error", err)
			continue
		}

		if err := t.topicRepo.UpdateEmotion(ctx, topic.UUID, emotion); err != nil {
			slog.Warn("Failed to store topic emotion", "topic", topic.UUID, "error", err)
		}
	}

	return nil
}
