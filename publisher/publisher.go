// Package publisher delivers a meeting summary to the document workspace
// (Notion), the team chat (Slack) and the file store (Google Drive).
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"meeting_minutes_publisher/metrics"
)

// Destination names a publication target system.
type Destination string

const (
	Document  Destination = "notion"
	Chat      Destination = "slack"
	ChatDM    Destination = "slack_dm"
	FileStore Destination = "drive"
)

var (
	// ErrNotConfigured means the destination client was never built, usually
	// because its credential is missing. Not retryable.
	ErrNotConfigured = errors.New("destination client not configured")
	// ErrInvalidResourceID rejects a malformed Notion page/database id.
	ErrInvalidResourceID = errors.New("invalid resource id")
	// ErrEmptyContent means the summary produced nothing publishable.
	ErrEmptyContent = errors.New("nothing to publish")
	// ErrTooManySegments means a chat message would exceed the block limit.
	ErrTooManySegments = errors.New("summary exceeds chat message segment limit")
	// ErrChannelNotFound is returned when paging the channel list finds no match.
	ErrChannelNotFound = errors.New("channel not found")
)

// Publisher is the uniform contract of every destination adapter. target is
// the destination-specific parent: Notion parent id, Slack channel, Drive folder
// or member email for direct messages. An empty target selects the adapter default.
type Publisher interface {
	Destination() Destination
	Publish(ctx context.Context, target, title, summary string) (Receipt, error)
}

// Receipt is the immutable record of one publish attempt.
type Receipt struct {
	Destination Destination `json:"destination"`
	ID          string      `json:"id,omitempty"`
	PublishedAt *time.Time  `json:"timestamp"`
	Succeeded   bool        `json:"succeeded"`
	Error       string      `json:"error,omitempty"`
}

// settle builds the receipt for an attempt that began at start, records its
// metrics and hands err back unchanged.
func settle(dest Destination, start time.Time, id string, err error) (Receipt, error) {
	now := time.Now()
	metrics.RecordPublish(string(dest), err == nil, now.Sub(start).Seconds())

	if err != nil {
		return Receipt{Destination: dest, Error: err.Error()}, err
	}
	return Receipt{Destination: dest, ID: id, PublishedAt: &now, Succeeded: true}, nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
