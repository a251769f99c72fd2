package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"
)

func applyPost(t *testing.T, db *DB, topicRepo *TopicRepo, ref TopicRef, post Post) TopicOutcome {
	t.Helper()

	var outcome TopicOutcome
	admitInTx(t, db, func(tx *sql.Tx) error {
		var err error
		outcome, err = topicRepo.ApplyPost(context.Background(), tx, ref, post)
		return err
	})
	return outcome
}

func TestApplyPostCreatesTopic(t *testing.T) {
	db := newTestDB(t)
	topicRepo := NewTopicRepo(db)
	ctx := context.Background()

	publishedAt := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	outcome := applyPost(t, db, topicRepo, TopicRef{UUID: "u1", Title: "breaking"}, testPost(1, 6, 3, 1, publishedAt))
	if outcome != TopicCreated {
		t.Errorf("Expected TopicCreated, got %s", outcome)
	}

	topic, err := topicRepo.GetTopic(ctx, "u1")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if topic == nil {
		t.Fatal("Expected topic to exist")
	}
	if topic.Title != "breaking" {
		t.Errorf("Expected title 'breaking', got '%s'", topic.Title)
	}
	if topic.Stage != 0 {
		t.Errorf("New topic should start at stage 0, got %d", topic.Stage)
	}
	if topic.PostCount != 1 {
		t.Errorf("Expected post_count 1, got %d", topic.PostCount)
	}
	if len(topic.PostIDs) != 1 || topic.PostIDs[0] != 1 {
		t.Errorf("Expected post ids [1], got %v", topic.PostIDs)
	}
	if topic.AvgLikes != 6 || topic.AvgComments != 3 || topic.AvgReposts != 1 {
		t.Errorf("Unexpected averages: %v %v %v", topic.AvgLikes, topic.AvgComments, topic.AvgReposts)
	}

	// 1 + 6 + 3 + 1 engagement mass in the publish-hour bucket
	if got := topic.HotHourly["2024-03-10T14"]; got != 11 {
		t.Errorf("Expected hotness 11 in bucket 2024-03-10T14, got %v", got)
	}
}

func TestApplyPostMergesIntoExistingTopic(t *testing.T) {
	db := newTestDB(t)
	topicRepo := NewTopicRepo(db)
	ctx := context.Background()

	ref := TopicRef{UUID: "u1", Title: "breaking"}
	publishedAt := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	applyPost(t, db, topicRepo, ref, testPost(1, 10, 0, 0, publishedAt))
	outcome := applyPost(t, db, topicRepo, ref, testPost(2, 20, 4, 2, publishedAt.Add(2*time.Hour)))
	if outcome != TopicUpdated {
		t.Errorf("Expected TopicUpdated, got %s", outcome)
	}

	topic, err := topicRepo.GetTopic(ctx, "u1")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if topic.PostCount != 2 {
		t.Errorf("Expected post_count 2, got %d", topic.PostCount)
	}
	if len(topic.PostIDs) != topic.PostCount {
		t.Errorf("post_count %d does not match %d associated posts", topic.PostCount, len(topic.PostIDs))
	}
	if topic.AvgLikes != 15 {
		t.Errorf("Expected avg_likes 15, got %v", topic.AvgLikes)
	}
	if topic.AvgComments != 2 {
		t.Errorf("Expected avg_comments 2, got %v", topic.AvgComments)
	}
	if topic.TotalLikes != 30 {
		t.Errorf("Expected total_likes 30, got %v", topic.TotalLikes)
	}
	if len(topic.HotHourly) != 2 {
		t.Errorf("Expected 2 hotness buckets, got %d", len(topic.HotHourly))
	}
}

func TestApplyPostSamePostTwiceIsUnchanged(t *testing.T) {
	db := newTestDB(t)
	topicRepo := NewTopicRepo(db)
	ctx := context.Background()

	ref := TopicRef{UUID: "u1", Title: "breaking"}
	post := testPost(1, 5, 0, 0, time.Now().UTC())

	applyPost(t, db, topicRepo, ref, post)
	outcome := applyPost(t, db, topicRepo, ref, post)
	if outcome != TopicUnchanged {
		t.Errorf("Expected TopicUnchanged, got %s", outcome)
	}

	topic, err := topicRepo.GetTopic(ctx, "u1")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if topic.PostCount != 1 {
		t.Errorf("Double-counting guard failed, post_count is %d", topic.PostCount)
	}
	if topic.TotalLikes != 5 {
		t.Errorf("Totals should be unchanged, total_likes is %v", topic.TotalLikes)
	}
}

func TestTopicEnrichmentQueriesAndUpdates(t *testing.T) {
	db := newTestDB(t)
	topicRepo := NewTopicRepo(db)
	ctx := context.Background()

	applyPost(t, db, topicRepo, TopicRef{UUID: "u1", Title: "first"}, testPost(1, 0, 0, 0, time.Now().UTC()))
	applyPost(t, db, topicRepo, TopicRef{UUID: "u2", Title: "second"}, testPost(2, 0, 0, 0, time.Now().UTC()))

	missing, err := topicRepo.GetMissingKeywords(ctx, 0)
	if err != nil {
		t.Fatalf("GetMissingKeywords failed: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("Expected 2 topics missing keywords, got %d", len(missing))
	}

	if err := topicRepo.UpdateKeywords(ctx, "u1", []string{"first"}); err != nil {
		t.Fatalf("UpdateKeywords failed: %v", err)
	}
	missing, err = topicRepo.GetMissingKeywords(ctx, 0)
	if err != nil {
		t.Fatalf("GetMissingKeywords failed: %v", err)
	}
	if len(missing) != 1 || missing[0].UUID != "u2" {
		t.Errorf("Expected only u2 to be missing keywords, got %v", missing)
	}

	if err := topicRepo.UpdateEmotion(ctx, "u1", json.RawMessage(`{"joy":0.8}`)); err != nil {
		t.Fatalf("UpdateEmotion failed: %v", err)
	}
	missingEmotion, err := topicRepo.GetMissingEmotion(ctx, 0)
	if err != nil {
		t.Fatalf("GetMissingEmotion failed: %v", err)
	}
	if len(missingEmotion) != 1 || missingEmotion[0].UUID != "u2" {
		t.Errorf("Expected only u2 to be missing emotion, got %v", missingEmotion)
	}

	topic, err := topicRepo.GetTopic(ctx, "u1")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if string(topic.Emotion) != `{"joy":0.8}` {
		t.Errorf("Unexpected emotion payload: %s", topic.Emotion)
	}
}

func TestTopicScore(t *testing.T) {
	topic := &Topic{PostCount: 10, AvgLikes: 5, AvgComments: 2, AvgReposts: 1}
	w := Weight{PostCountWeight: 1, AvgLikesWeight: 2, AvgCommentsWeight: 3, AvgRepostsWeight: 4}

	if got := topic.Score(w); got != 30 {
		t.Errorf("Expected score 30, got %v", got)
	}
}
