package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trendline-app/trendline/app/catalog"
	"github.com/trendline-app/trendline/app/database"
	"github.com/trendline-app/trendline/app/tasks"
)

func NewHandler(db *database.DB, postRepo database.PostRepository,
	topicRepo database.TopicRepository, channelRepo database.ChannelRepository,
	cat *catalog.Catalog, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		db:          db,
		postRepo:    postRepo,
		topicRepo:   topicRepo,
		channelRepo: channelRepo,
		catalog:     cat,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		slog.Error("Database ping failed", "error", err)
		health["status"] = "unhealthy"
		health["error"] = "database unreachable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "ok"
	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.postRepo.GetCount(ctx); err == nil {
		stats["posts"] = count
	}
	if count, err := h.topicRepo.GetCount(ctx); err == nil {
		stats["topics"] = count
	}
	if count, err := h.channelRepo.GetCount(ctx); err == nil {
		stats["channels"] = count
	}

	if last, ok := h.scheduler.LastCycle(); ok {
		stats["last_cycle"] = last
	}

	c.JSON(http.StatusOK, stats)
}

// APIRunCycle triggers an ingestion cycle synchronously and returns its
// accounting. Cycles are serialized, a concurrent periodic cycle simply makes
// this call wait.
func (h *Handler) APIRunCycle(c *gin.Context) {
	refresh := c.Query("refresh") != "false"

	summary, err := h.scheduler.RunIngestionCycle(c.Request.Context(), refresh)
	if err != nil {
		slog.Error("Manual cycle failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Cycle failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cycle":   summary,
	})
}

// APISyncChannels enqueues a catalog refresh without running a full cycle.
func (h *Handler) APISyncChannels(c *gin.Context) {
	task := tasks.NewSyncChannelsTask(h.catalog)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sync task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}
