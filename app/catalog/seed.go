package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trendline-app/trendline/app/database"
)

type seedFile struct {
	Channels []database.Channel `yaml:"channels"`
}

// LoadSeed reads the optional YAML channel seed. A missing file is not an
// error; the seed only matters before the first successful remote refresh.
func LoadSeed(path string) ([]database.Channel, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return seed.Channels, nil
}

// ApplySeed populates the channel table from the seed file when it is empty,
// so the first cycle has something to poll even if the remote directory
// refresh fails.
func (c *Catalog) ApplySeed(ctx context.Context, path string) error {
	count, err := c.channelRepo.GetCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	channels, err := LoadSeed(path)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return nil
	}

	for _, channel := range channels {
		if err := c.channelRepo.Upsert(ctx, channel); err != nil {
			return fmt.Errorf("failed to store seed channel %s: %w", channel.GID, err)
		}
	}

	slog.Info("Channel table seeded", "channels", len(channels), "file", path)

	return nil
}
