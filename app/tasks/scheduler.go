package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/trendline-app/trendline/app/analysis"
	"github.com/trendline-app/trendline/app/catalog"
	"github.com/trendline-app/trendline/app/cfg"
	"github.com/trendline-app/trendline/app/database"
	"github.com/trendline-app/trendline/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	catalog        *catalog.Catalog
	channelRepo    database.ChannelRepository
	postRepo       database.PostRepository
	topicRepo      database.TopicRepository
	ingester       *feed.Ingester
	extractor      analysis.KeywordExtractor
	analyzer       analysis.SentimentAnalyzer
	httpClient     *http.Client
	userAgent      string
	interval       time.Duration
	workerCount    int
	sinceVariants  int
	pollCount      int
	firstPollCount int
	fetchTimeout   time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
	cycleMu        sync.Mutex
	lastCycleMu    sync.RWMutex
	lastCycle      *CycleSummary
}

func NewScheduler(cat *catalog.Catalog, channelRepo database.ChannelRepository,
	postRepo database.PostRepository, topicRepo database.TopicRepository,
	ingester *feed.Ingester, extractor analysis.KeywordExtractor,
	analyzer analysis.SentimentAnalyzer, httpClient *http.Client) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		catalog:        cat,
		channelRepo:    channelRepo,
		postRepo:       postRepo,
		topicRepo:      topicRepo,
		ingester:       ingester,
		extractor:      extractor,
		analyzer:       analyzer,
		httpClient:     httpClient,
		userAgent:      c.UserAgent,
		interval:       time.Duration(c.SchedulerInterval) * time.Second,
		workerCount:    c.WorkerCount,
		sinceVariants:  c.SinceVariants,
		pollCount:      c.PollCount,
		firstPollCount: c.FirstPollCount,
		fetchTimeout:   time.Duration(c.FetchTimeout) * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// The startup cycle refreshes the channel catalog before polling.
		s.runCycle(true)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle(true)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) runCycle(refreshChannels bool) {
	if _, err := s.RunIngestionCycle(s.ctx, refreshChannels); err != nil {
		slog.Error("Ingestion cycle failed", "error", err)
	}
}

// RunIngestionCycle performs one full pass: optional channel refresh, bounded
// parallel polling of every feed URL, barrier, then the enrichment pass over
// all posts and topics still missing derived fields. Cycles never overlap;
// the enrichment pass therefore never races with admission.
func (s *Scheduler) RunIngestionCycle(ctx context.Context, refreshChannels bool) (CycleSummary, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	started := time.Now()

	if refreshChannels {
		if _, err := s.catalog.Refresh(ctx); err != nil {
			slog.Warn("Channel refresh failed, using last-known channels", "error", err)
		}
	}

	channels, err := s.channelRepo.GetChannels(ctx)
	if err != nil {
		return CycleSummary{}, fmt.Errorf("failed to load channels: %w", err)
	}
	if len(channels) == 0 {
		slog.Warn("No channels to poll, skipping cycle")
		return CycleSummary{FinishedAt: time.Now()}, nil
	}

	urls := s.catalog.BuildURLs(channels, s.sinceVariants)
	slog.Debug("Cycle dispatch", "channels", len(channels), "urls", len(urls), "workers", s.workerCount)

	stats := &CycleStats{}
	var barrier sync.WaitGroup

	for i, url := range urls {
		polls := s.pollCount
		// The first since-variant of each channel gets the heavy pass.
		if i < len(channels) {
			polls = s.firstPollCount
		}

		task := NewPollFeedTask(url, polls, s.httpClient, s.ingester, s.userAgent, s.fetchTimeout, stats, &barrier)
		barrier.Add(1)
		if err := s.EnqueueTask(task); err != nil {
			barrier.Done()
			stats.FailedPolls.Add(1)
			slog.Warn("Failed to enqueue poll task", "url", url, "error", err)
		}
	}

	if !waitWithTimeout(&barrier, s.barrierTimeout()) {
		slog.Warn("Poll barrier timed out, abandoning outstanding polls", "timeout", s.barrierTimeout().String())
	}

	enrich := NewEnrichTask(s.postRepo, s.topicRepo, s.extractor, s.analyzer, stats)
	enrich.Start()
	if err := enrich.Execute(ctx); err != nil {
		slog.Error("Enrichment pass failed", "error", err)
	}

	summary := stats.Snapshot()
	summary.Duration = time.Since(started)
	summary.FinishedAt = time.Now()

	s.lastCycleMu.Lock()
	s.lastCycle = &summary
	s.lastCycleMu.Unlock()

	slog.Info("Ingestion cycle completed",
		"duration", summary.Duration.String(),
		"polls", summary.Polls,
		"failed_polls", summary.FailedPolls,
		"admitted", summary.Admitted,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"enriched_posts", summary.EnrichedPosts,
		"enriched_topics", summary.EnrichedTopics)

	return summary, nil
}

func (s *Scheduler) LastCycle() (CycleSummary, bool) {
	s.lastCycleMu.RLock()
	defer s.lastCycleMu.RUnlock()

	if s.lastCycle == nil {
		return CycleSummary{}, false
	}
	return *s.lastCycle, true
}

// barrierTimeout bounds the wait for a cycle's polls so one stuck worker
// cannot stall enrichment forever.
func (s *Scheduler) barrierTimeout() time.Duration {
	return time.Duration(s.firstPollCount)*s.fetchTimeout + time.Minute
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
