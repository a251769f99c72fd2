package tasks

import (
	"context"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RunIngestionCycle(ctx context.Context, refreshChannels bool) (CycleSummary, error)
	LastCycle() (CycleSummary, bool)
}
