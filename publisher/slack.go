package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"meeting_minutes_publisher/chunk"
	"meeting_minutes_publisher/markup"
)

const (
	// Slack limits: characters per section text, blocks per message.
	slackSectionLimit = 3000
	slackMaxBlocks    = 50

	defaultSlackUsername = "ATABot"
	defaultSlackIcon     = ":memo:"
)

var slackChannelID = regexp.MustCompile(`^[CGD][A-Z0-9]{8,}$`)

// slackAPI is the part of *slack.Client the publisher uses.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	GetUserByEmailContext(ctx context.Context, email string) (*slack.User, error)
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

// SlackOptions configures message delivery.
type SlackOptions struct {
	Channel string
	// Mode is "blocks" (default): one message of mrkdwn sections, or "file":
	// an intro message with the summary attached in its thread.
	Mode              string
	ChunkSize         int
	Username          string
	IconEmoji         string
	UsernameFromAdmin bool
	// LookupInterval paces the per-member users.info calls of ChannelAdmin.
	LookupInterval time.Duration
}

// SlackPublisher posts summaries to a channel and resolves Slack identities.
type SlackPublisher struct {
	api     slackAPI
	opts    SlackOptions
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.Mutex
	channels map[string]string
}

// NewSlackPublisher wraps client. A nil client yields a publisher whose calls
// fail with ErrNotConfigured.
func NewSlackPublisher(client *slack.Client, opts SlackOptions, logger *slog.Logger) *SlackPublisher {
	var api slackAPI
	if client != nil {
		api = client
	}
	return newSlackPublisher(api, opts, logger)
}

func newSlackPublisher(api slackAPI, opts SlackOptions, logger *slog.Logger) *SlackPublisher {
	if opts.ChunkSize <= 0 || opts.ChunkSize > slackSectionLimit {
		opts.ChunkSize = slackSectionLimit
	}
	if opts.Username == "" {
		opts.Username = defaultSlackUsername
	}
	if opts.IconEmoji == "" {
		opts.IconEmoji = defaultSlackIcon
	}
	limit := rate.Inf
	if opts.LookupInterval > 0 {
		limit = rate.Every(opts.LookupInterval)
	}
	return &SlackPublisher{
		api:      api,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   loggerOrDefault(logger),
		channels: make(map[string]string),
	}
}

func (p *SlackPublisher) Destination() Destination { return Chat }

// Publish delivers summary to target (or the configured channel). The receipt
// id is the message timestamp.
func (p *SlackPublisher) Publish(ctx context.Context, target, title, summary string) (Receipt, error) {
	start := time.Now()
	ts, err := p.publish(ctx, target, title, summary)
	return settle(Chat, start, ts, err)
}

func (p *SlackPublisher) publish(ctx context.Context, target, title, summary string) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("slack: %w", ErrNotConfigured)
	}
	ref := target
	if ref == "" {
		ref = p.opts.Channel
	}
	channelID, err := p.ResolveChannel(ctx, ref)
	if err != nil {
		return "", err
	}

	if p.opts.Mode == "file" {
		ts, _, err := p.SendFile(ctx, channelID, title, []byte(summary))
		return ts, err
	}
	return p.PostSummary(ctx, channelID, title, summary)
}

// PostSummary converts summary to mrkdwn and posts it as a single message with
// one section per chunk. title is the notification fallback text.
func (p *SlackPublisher) PostSummary(ctx context.Context, channelID, title, summary string) (string, error) {
	chunks, err := chunk.Split(markup.ToChatMarkup(summary), p.opts.ChunkSize)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("slack: %w", ErrEmptyContent)
	}
	if len(chunks) > slackMaxBlocks {
		return "", fmt.Errorf("slack: %w: %d segments, limit %d", ErrTooManySegments, len(chunks), slackMaxBlocks)
	}

	blocks := make([]slack.Block, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, c, false, false), nil, nil))
	}

	_, ts, err := p.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(title, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return "", fmt.Errorf("slack post message: %w", err)
	}
	p.logger.Info("slack summary posted", "channel", channelID, "ts", ts, "segments", len(chunks))
	return ts, nil
}

// SendMessage posts plain text to a channel or DM id under the bot identity.
func (p *SlackPublisher) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("slack: %w", ErrNotConfigured)
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	opts = append(opts, p.identity(ctx, channelID)...)

	_, ts, err := p.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack post message: %w", err)
	}
	return ts, nil
}

// SendFile posts an intro message and, once it succeeded, uploads content as
// <name>.md into that message's thread. It returns the intro message
// timestamp and the uploaded file id.
func (p *SlackPublisher) SendFile(ctx context.Context, channelID, name string, content []byte) (string, string, error) {
	ts, err := p.SendMessage(ctx, channelID, fmt.Sprintf("Aqui está a ata da reunião: %s", name))
	if err != nil {
		return "", "", fmt.Errorf("slack intro message: %w", err)
	}

	file, err := p.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:         channelID,
		Reader:          bytes.NewReader(content),
		FileSize:        len(content),
		Filename:        name + ".md",
		Title:           name,
		ThreadTimestamp: ts,
	})
	if err != nil {
		return ts, "", fmt.Errorf("slack upload file: %w", err)
	}
	p.logger.Info("slack file uploaded", "channel", channelID, "thread_ts", ts, "file_id", file.ID)
	return ts, file.ID, nil
}

// ResolveChannel turns "#name" or "name" into a channel id; ids pass through.
func (p *SlackPublisher) ResolveChannel(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("slack: channel is required")
	}
	if slackChannelID.MatchString(ref) {
		return ref, nil
	}
	return p.ChannelID(ctx, strings.TrimPrefix(ref, "#"))
}

// identity returns the username/icon options, preferring the channel admin's
// display name when configured.
func (p *SlackPublisher) identity(ctx context.Context, channelID string) []slack.MsgOption {
	username := p.opts.Username
	if p.opts.UsernameFromAdmin {
		admin, err := p.ChannelAdmin(ctx, channelID)
		switch {
		case err != nil:
			p.logger.Warn("slack admin lookup failed", "channel", channelID, "error", err)
		case admin != nil && admin.Username != "":
			username = admin.Username
		}
	}
	return []slack.MsgOption{
		slack.MsgOptionUsername(username),
		slack.MsgOptionIconEmoji(p.opts.IconEmoji),
	}
}
