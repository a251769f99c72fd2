package feed

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/araddon/dateparse"
	"github.com/trendline-app/trendline/app/database"
)

// The source emits Ruby-style timestamps ("Mon Jan 02 15:04:05 +0800 2006").
const sourceDateFormat = time.RubyDate

type Parser struct {
	cleaner *Cleaner
}

func NewParser() *Parser {
	return &Parser{
		cleaner: NewCleaner(),
	}
}

// Run decodes a raw timeline payload into cleaned entries. A malformed
// payload is a ParseError; an entry with missing required fields or an
// unparseable timestamp is skipped with a warning, never fatal.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ParseError{Reason: "malformed payload", Err: err}
	}

	var entries []Entry
	for _, status := range payload.Statuses {
		if status.ID == 0 {
			slog.Warn("Skipping entry without post id")
			continue
		}
		if status.CreatedAt == "" {
			slog.Warn("Skipping entry without timestamp", "post_id", status.ID)
			continue
		}

		publishedAt, err := parseTimestamp(status.CreatedAt)
		if err != nil {
			slog.Warn("Skipping entry with unparseable timestamp", "post_id", status.ID, "created_at", status.CreatedAt, "error", err)
			continue
		}

		entry := Entry{
			ID:            status.ID,
			Author:        status.User.ScreenName,
			Text:          p.cleaner.Run(status.TextRaw),
			PublishedAt:   publishedAt,
			RepostsCount:  status.RepostsCount,
			CommentsCount: status.CommentsCount,
			LikesCount:    status.AttitudesCount,
		}

		for _, topic := range status.TopicStruct {
			if topic.ActionLog.UUID == "" {
				slog.Warn("Skipping topic reference without uuid", "post_id", status.ID, "title", topic.TopicTitle)
				continue
			}
			entry.Topics = append(entry.Topics, database.TopicRef{
				UUID:  topic.ActionLog.UUID,
				Title: topic.TopicTitle,
			})
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(sourceDateFormat, value); err == nil {
		return t, nil
	}
	return dateparse.ParseAny(value)
}
