package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	Port              string
	APIAccessKey      string
	ChannelsFile      string
	WorkerCount       int
	SchedulerInterval int

	// Fetch configuration
	SourceBaseURL  string
	SinceVariants  int
	PollCount      int
	FirstPollCount int
	FetchTimeout   int
	RecencyHours   int

	// Analysis service configuration
	AnalysisURL string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
