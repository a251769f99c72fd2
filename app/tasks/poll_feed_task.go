package tasks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/trendline-app/trendline/app/feed"
)

// PollFeedTask polls one feed URL a fixed number of times, ingesting every
// payload it gets. Distinct polls of the same URL over time catch newly
// posted content. Failures are counted and logged, never returned: the cycle
// barrier must always complete.
type PollFeedTask struct {
	Task
	URL          string
	Polls        int
	httpClient   *http.Client
	ingester     *feed.Ingester
	userAgent    string
	fetchTimeout time.Duration
	stats        *CycleStats
	barrier      *sync.WaitGroup
}

func NewPollFeedTask(url string, polls int, httpClient *http.Client, ingester *feed.Ingester,
	userAgent string, fetchTimeout time.Duration, stats *CycleStats, barrier *sync.WaitGroup) *PollFeedTask {
	task := NewTask(TaskTypePollFeed, url)
	// Polls retry internally; the task itself must run exactly once so the
	// barrier count stays correct.
	task.MaxRetries = 0

	return &PollFeedTask{
		Task:         task,
		URL:          url,
		Polls:        polls,
		httpClient:   httpClient,
		ingester:     ingester,
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
		stats:        stats,
		barrier:      barrier,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	if t.barrier != nil {
		defer t.barrier.Done()
	}

	var stats feed.Stats

	for i := 0; i < t.Polls; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		t.stats.Polls.Add(1)

		payload, err := t.fetch(ctx)
		if err != nil {
			slog.Warn("Poll failed", "url", t.URL, "poll", i+1, "error", err)
			t.stats.FailedPolls.Add(1)
			continue
		}

		st, err := t.ingester.Run(ctx, payload)
		if err != nil {
			slog.Warn("Payload rejected", "url", t.URL, "poll", i+1, "error", err)
			t.stats.FailedPolls.Add(1)
			continue
		}

		stats.Add(st)
		t.stats.AddIngest(st)
	}

	slog.Info("Task completed",
		"type", "PollFeed",
		"url", t.URL,
		"duration", t.GetDuration(),
		"polls", t.Polls,
		"admitted", stats.Admitted,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"failed", stats.Failed)

	return nil
}

func (t *PollFeedTask) fetch(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", t.URL, nil)
	if err != nil {
		return nil, &feed.FetchError{URL: t.URL, Err: err}
	}

	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &feed.FetchError{URL: t.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.FetchError{URL: t.URL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &feed.FetchError{URL: t.URL, Err: err}
	}

	return data, nil
}
