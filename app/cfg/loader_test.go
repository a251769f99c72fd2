package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestGetPanicsWithoutLoad(t *testing.T) {
	old := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = old
		if r := recover(); r == nil {
			t.Error("Get should panic when configuration is not loaded")
		}
	}()
	Get()
}

func TestSetAndGet(t *testing.T) {
	cfg := &Cfg{
		DBPath:            "./test.db",
		Port:              "8080",
		WorkerCount:       3,
		SchedulerInterval: 900,
		SourceBaseURL:     "https://weibo.com",
		SinceVariants:     3,
		PollCount:         8,
		FirstPollCount:    50,
		FetchTimeout:      30,
		RecencyHours:      72,
		AnalysisURL:       "http://localhost:9090",
		UserAgent:         "Test Agent",
		Timezone:          "UTC",
	}
	Set(cfg)

	got := Get()
	if got.DBPath != "./test.db" {
		t.Errorf("Expected db path './test.db', got '%s'", got.DBPath)
	}
	if got.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", got.WorkerCount)
	}
	if got.RecencyHours != 72 {
		t.Errorf("Expected recency hours 72, got %d", got.RecencyHours)
	}
	if got.FirstPollCount != 50 {
		t.Errorf("Expected first poll count 50, got %d", got.FirstPollCount)
	}
}
