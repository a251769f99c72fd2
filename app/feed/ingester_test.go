package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/trendline-app/trendline/app/database"
)

type fakeAnalyzer struct {
	calls int
	fail  bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, tokens []string) (json.RawMessage, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("analyzer unavailable")
	}
	return json.RawMessage(`{"joy":0.5}`), nil
}

func newTestIngester(t *testing.T) (*Ingester, *database.DB, *database.PostRepo, *database.TopicRepo) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	postRepo := database.NewPostRepo(db)
	topicRepo := database.NewTopicRepo(db)
	ingester := NewIngester(db, postRepo, topicRepo, &fakeAnalyzer{}, 72)

	return ingester, db, postRepo, topicRepo
}

func timelinePayload(entries ...string) []byte {
	return []byte(fmt.Sprintf(`{"statuses": [%s]}`, joinEntries(entries)))
}

func joinEntries(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out
}

func recentEntry(id int64, topics string) string {
	return payloadEntry(id, time.Now().Add(-time.Hour).Format(time.RubyDate), topics)
}

func TestIngesterScenarioThreePosts(t *testing.T) {
	ingester, _, postRepo, topicRepo := newTestIngester(t)
	ctx := context.Background()

	// one post on U1, one on U1+U2, one with no topics
	payload := timelinePayload(
		recentEntry(1, topicRef("u1", "first topic")),
		recentEntry(2, topicRef("u1", "first topic")+","+topicRef("u2", "second topic")),
		recentEntry(3, ""),
	)

	stats, err := ingester.Run(ctx, payload)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Admitted != 3 {
		t.Errorf("Expected 3 admitted, got %+v", stats)
	}

	count, _ := postRepo.GetCount(ctx)
	if count != 3 {
		t.Errorf("Expected 3 persisted posts, got %d", count)
	}

	u1, err := topicRepo.GetTopic(ctx, "u1")
	if err != nil || u1 == nil {
		t.Fatalf("Expected topic u1, err=%v", err)
	}
	if u1.PostCount != 2 || len(u1.PostIDs) != 2 {
		t.Errorf("Expected u1 post_count 2, got %d (%v)", u1.PostCount, u1.PostIDs)
	}

	u2, err := topicRepo.GetTopic(ctx, "u2")
	if err != nil || u2 == nil {
		t.Fatalf("Expected topic u2, err=%v", err)
	}
	if u2.PostCount != 1 {
		t.Errorf("Expected u2 post_count 1, got %d", u2.PostCount)
	}

	// post 3 admitted with an empty topic set
	post3, _ := postRepo.GetPost(ctx, 3)
	if post3 == nil || len(post3.TopicUUIDs) != 0 {
		t.Errorf("Expected post 3 with empty topic set, got %+v", post3)
	}
}

func TestIngesterIdempotent(t *testing.T) {
	ingester, _, postRepo, topicRepo := newTestIngester(t)
	ctx := context.Background()

	payload := timelinePayload(
		recentEntry(1, topicRef("u1", "topic")),
		recentEntry(2, topicRef("u1", "topic")),
	)

	first, err := ingester.Run(ctx, payload)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.Admitted != 2 {
		t.Fatalf("Expected 2 admitted on first run, got %+v", first)
	}

	second, err := ingester.Run(ctx, payload)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.Admitted != 0 {
		t.Errorf("Second ingestion must admit 0 posts, got %+v", second)
	}
	if second.Duplicates != 2 {
		t.Errorf("Expected 2 duplicates on second run, got %+v", second)
	}

	count, _ := postRepo.GetCount(ctx)
	if count != 2 {
		t.Errorf("Expected exactly 2 persisted posts, got %d", count)
	}

	topic, _ := topicRepo.GetTopic(ctx, "u1")
	if topic.PostCount != 2 {
		t.Errorf("Topic counts must be unchanged by re-ingestion, got %d", topic.PostCount)
	}
}

func TestIngesterRecencyFilter(t *testing.T) {
	ingester, _, postRepo, topicRepo := newTestIngester(t)
	ctx := context.Background()

	old := payloadEntry(1, time.Now().Add(-100*time.Hour).Format(time.RubyDate), topicRef("u1", "stale"))
	stats, err := ingester.Run(ctx, timelinePayload(old))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Admitted != 0 || stats.Skipped != 1 {
		t.Errorf("Expected 100h-old post skipped, got %+v", stats)
	}

	count, _ := postRepo.GetCount(ctx)
	if count != 0 {
		t.Errorf("Stale post must not be persisted, got %d posts", count)
	}

	topic, _ := topicRepo.GetTopic(ctx, "u1")
	if topic != nil {
		t.Error("Stale post must have no topic side effects")
	}
}

func TestIngesterDuplicateTopicRefInOneEntry(t *testing.T) {
	ingester, _, _, topicRepo := newTestIngester(t)
	ctx := context.Background()

	topics := topicRef("u1", "dup") + "," + topicRef("u1", "dup")
	if _, err := ingester.Run(ctx, timelinePayload(recentEntry(1, topics))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	topic, _ := topicRepo.GetTopic(ctx, "u1")
	if topic.PostCount != 1 {
		t.Errorf("Duplicate topic ref within one entry must not double-count, got %d", topic.PostCount)
	}
}

func TestIngesterConcurrentTopicCreation(t *testing.T) {
	ingester, _, _, topicRepo := newTestIngester(t)
	ctx := context.Background()

	// Two concurrent ingestions, different posts, same unseen topic
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := int64(1); i <= 2; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := ingester.Run(ctx, timelinePayload(recentEntry(id, topicRef("u-shared", "race"))))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent run failed: %v", err)
		}
	}

	topic, err := topicRepo.GetTopic(ctx, "u-shared")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if topic == nil {
		t.Fatal("Expected exactly one topic record")
	}
	if topic.PostCount != 2 {
		t.Errorf("Expected post_count 2 reflecting both contributions, got %d", topic.PostCount)
	}
	if len(topic.PostIDs) != 2 {
		t.Errorf("Expected both post ids associated, got %v", topic.PostIDs)
	}
}

func TestIngesterAnalyzerFailureDoesNotDropPost(t *testing.T) {
	ingester, _, postRepo, _ := newTestIngester(t)
	ingester.analyzer = &fakeAnalyzer{fail: true}
	ctx := context.Background()

	stats, err := ingester.Run(ctx, timelinePayload(recentEntry(1, "")))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Admitted != 1 {
		t.Errorf("Post should be admitted despite analyzer failure, got %+v", stats)
	}

	post, _ := postRepo.GetPost(ctx, 1)
	if post == nil {
		t.Fatal("Expected post to be persisted")
	}
	if len(post.Emotion) != 0 {
		t.Errorf("Expected empty emotion on analyzer failure, got %s", post.Emotion)
	}
}

func TestIngesterSentimentStoredAtAdmission(t *testing.T) {
	ingester, _, postRepo, _ := newTestIngester(t)
	ctx := context.Background()

	if _, err := ingester.Run(ctx, timelinePayload(recentEntry(1, ""))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	post, _ := postRepo.GetPost(ctx, 1)
	if string(post.Emotion) != `{"joy":0.5}` {
		t.Errorf("Expected emotion stored at admission, got %s", post.Emotion)
	}
}
