package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/trendline-app/trendline/app/database"
	"github.com/trendline-app/trendline/app/feed"
)

// Group titles whose channels are polled; matches the source's own grouping
// of the channel directory.
var defaultWatchGroups = []string{"我的频道", "频道推荐"}

type allGroupsResponse struct {
	Groups []struct {
		Title string `json:"title"`
		Group []struct {
			Title       string      `json:"title"`
			GID         json.Number `json:"gid"`
			ContainerID string      `json:"containerid"`
		} `json:"group"`
	} `json:"groups"`
}

// Catalog resolves the set of channels to poll and expands them into fetch
// URLs.
type Catalog struct {
	baseURL     string
	userAgent   string
	watchGroups []string
	httpClient  *http.Client
	channelRepo database.ChannelRepository
}

func NewCatalog(baseURL, userAgent string, httpClient *http.Client, channelRepo database.ChannelRepository) *Catalog {
	return &Catalog{
		baseURL:     baseURL,
		userAgent:   userAgent,
		watchGroups: defaultWatchGroups,
		httpClient:  httpClient,
		channelRepo: channelRepo,
	}
}

// Refresh fetches the current channel directory and upserts every channel in
// a watched group, latest remote copy winning. Returns the number of channels
// upserted. On failure callers keep polling the last-known channel set.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	url := c.baseURL + "/ajax/feed/allGroups?is_new_segment=1&fetch_hot=1"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, &feed.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &feed.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &feed.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &feed.FetchError{URL: url, Err: err}
	}

	var directory allGroupsResponse
	if err := json.Unmarshal(body, &directory); err != nil {
		return 0, &feed.ParseError{Reason: "malformed channel directory", Err: err}
	}

	count := 0
	for _, group := range directory.Groups {
		if !slices.Contains(c.watchGroups, group.Title) {
			continue
		}
		for _, entry := range group.Group {
			channel := database.Channel{
				GID:         entry.GID.String(),
				Title:       entry.Title,
				ContainerID: entry.ContainerID,
			}
			if channel.GID == "" {
				slog.Warn("Skipping channel without gid", "title", channel.Title)
				continue
			}
			if err := c.channelRepo.Upsert(ctx, channel); err != nil {
				return count, fmt.Errorf("failed to store channel %s: %w", channel.GID, err)
			}
			count++
		}
	}

	slog.Info("Channel catalog refreshed", "channels", count)

	return count, nil
}

// BuildURLs deterministically expands each channel into one hottimeline URL
// per since-window variant, variant-major order. Overlapping variants raise
// the chance of catching posts a prior pass missed.
func (c *Catalog) BuildURLs(channels []database.Channel, variants int) []string {
	var urls []string
	for variant := 0; variant < variants; variant++ {
		for _, channel := range channels {
			urls = append(urls, fmt.Sprintf(
				"%s/ajax/feed/hottimeline?since_id=0&refresh=%d&group_id=%s&containerid=%s&extparam=discover%%7Cnew_feed&max_id=0&count=10",
				c.baseURL, variant, channel.GID, channel.ContainerID))
		}
	}
	return urls
}
