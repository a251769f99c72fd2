package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trendline-app/trendline/app/catalog"
)

type SyncChannelsTask struct {
	Task
	catalog *catalog.Catalog
}

func NewSyncChannelsTask(cat *catalog.Catalog) *SyncChannelsTask {
	return &SyncChannelsTask{
		Task:    NewTask(TaskTypeSyncChannels, "channels"),
		catalog: cat,
	}
}

func (t *SyncChannelsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	count, err := t.catalog.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh channel catalog: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncChannels",
		"duration", t.GetDuration(),
		"channels", count)

	return nil
}
