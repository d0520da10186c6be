package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
)

const slackPageSize = 200

// Member is a Slack workspace member.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func memberFrom(u *slack.User) Member {
	username := u.Profile.DisplayName
	if username == "" {
		username = u.RealName
	}
	return Member{ID: u.ID, Name: u.RealName, Username: username, Email: u.Profile.Email}
}

// UserByEmail looks a member up by email (users:read.email scope).
func (p *SlackPublisher) UserByEmail(ctx context.Context, email string) (Member, error) {
	if p.api == nil {
		return Member{}, fmt.Errorf("slack: %w", ErrNotConfigured)
	}
	u, err := p.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return Member{}, fmt.Errorf("slack lookup %s: %w", email, err)
	}
	return memberFrom(u), nil
}

// DirectMessageID opens (or reuses) the DM conversation with userID.
func (p *SlackPublisher) DirectMessageID(ctx context.Context, userID string) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("slack: %w", ErrNotConfigured)
	}
	ch, _, _, err := p.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return "", fmt.Errorf("slack open dm with %s: %w", userID, err)
	}
	return ch.ID, nil
}

// ChannelID pages through public and private channels until one is named
// name. Matches are cached for the publisher's lifetime.
func (p *SlackPublisher) ChannelID(ctx context.Context, name string) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("slack: %w", ErrNotConfigured)
	}
	p.mu.Lock()
	id, ok := p.channels[name]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           slackPageSize,
		Types:           []string{"public_channel", "private_channel"},
	}
	for {
		channels, next, err := p.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("slack list channels: %w", err)
		}
		for _, c := range channels {
			if c.Name == name {
				p.mu.Lock()
				p.channels[name] = c.ID
				p.mu.Unlock()
				return c.ID, nil
			}
		}
		if next == "" {
			break
		}
		params.Cursor = next
	}
	return "", fmt.Errorf("%w: %q (private channels need the bot invited)", ErrChannelNotFound, name)
}

// ChannelAdmin returns the first member of channelID flagged admin or owner,
// or nil when there is none. It costs one users.info call per member; members
// whose lookup fails are skipped.
func (p *SlackPublisher) ChannelAdmin(ctx context.Context, channelID string) (*Member, error) {
	if p.api == nil {
		return nil, fmt.Errorf("slack: %w", ErrNotConfigured)
	}

	params := &slack.GetUsersInConversationParameters{ChannelID: channelID, Limit: slackPageSize}
	for {
		members, next, err := p.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("slack list members of %s: %w", channelID, err)
		}
		for _, userID := range members {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			u, err := p.api.GetUserInfoContext(ctx, userID)
			if err != nil {
				p.logger.Debug("slack user lookup skipped", "user", userID, "error", err)
				continue
			}
			if u.IsAdmin || u.IsOwner {
				m := memberFrom(u)
				return &m, nil
			}
		}
		if next == "" {
			return nil, nil
		}
		params.Cursor = next
	}
}

// DirectMessagePublisher tells a member, in a DM, that the minutes were posted.
type DirectMessagePublisher struct {
	slack   *SlackPublisher
	email   string
	channel string
}

// NewDirectMessagePublisher notifies email (default target) about posts made
// to channel.
func NewDirectMessagePublisher(sp *SlackPublisher, email, channel string) *DirectMessagePublisher {
	return &DirectMessagePublisher{slack: sp, email: email, channel: channel}
}

func (d *DirectMessagePublisher) Destination() Destination { return ChatDM }

func (d *DirectMessagePublisher) Publish(ctx context.Context, target, title, _ string) (Receipt, error) {
	start := time.Now()
	ts, err := d.notify(ctx, target, title)
	return settle(ChatDM, start, ts, err)
}

func (d *DirectMessagePublisher) notify(ctx context.Context, target, title string) (string, error) {
	email := target
	if email == "" {
		email = d.email
	}
	member, err := d.slack.UserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	dm, err := d.slack.DirectMessageID(ctx, member.ID)
	if err != nil {
		return "", err
	}
	channelID, err := d.slack.ResolveChannel(ctx, d.channel)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("Olá <@%s>! A ata *%s* foi publicada em <#%s>.", member.ID, title, channelID)
	return d.slack.SendMessage(ctx, dm, text)
}
