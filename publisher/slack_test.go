package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannelID = "C0ATA00001"

type postedMessage struct {
	channel string
	values  url.Values
}

type fakeSlack struct {
	posts   []postedMessage
	postErr error

	uploads   []slack.UploadFileV2Parameters
	uploaded  []string
	uploadErr error

	channelPages  map[string][]slack.Channel
	nextCursor    map[string]string
	listedCursors []string

	members       []string
	users         map[string]*slack.User
	userInfoCalls int

	byEmail map[string]*slack.User
	opened  []string
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("xoxb-test", channelID, "https://slack.com/api/", options...)
	if err != nil {
		return "", "", err
	}
	f.posts = append(f.posts, postedMessage{channel: channelID, values: values})
	if f.postErr != nil {
		return "", "", f.postErr
	}
	return channelID, fmt.Sprintf("1700000000.%06d", len(f.posts)), nil
}

func (f *fakeSlack) UploadFileV2Context(_ context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	f.uploads = append(f.uploads, params)
	data, _ := io.ReadAll(params.Reader)
	f.uploaded = append(f.uploaded, string(data))
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &slack.FileSummary{ID: "F0FILE0001", Title: params.Title}, nil
}

func (f *fakeSlack) GetUserByEmailContext(_ context.Context, email string) (*slack.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, errors.New("users_not_found")
}

func (f *fakeSlack) OpenConversationContext(_ context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error) {
	f.opened = append(f.opened, params.Users...)
	return testChannel("D0DM000001", ""), false, false, nil
}

func (f *fakeSlack) GetConversationsContext(_ context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	f.listedCursors = append(f.listedCursors, params.Cursor)
	return f.channelPages[params.Cursor], f.nextCursor[params.Cursor], nil
}

func (f *fakeSlack) GetUsersInConversationContext(_ context.Context, _ *slack.GetUsersInConversationParameters) ([]string, string, error) {
	return f.members, "", nil
}

func (f *fakeSlack) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	f.userInfoCalls++
	if u, ok := f.users[user]; ok {
		return u, nil
	}
	return nil, errors.New("user_not_found")
}

func testChannel(id, name string) *slack.Channel {
	return &slack.Channel{GroupConversation: slack.GroupConversation{
		Conversation: slack.Conversation{ID: id},
		Name:         name,
	}}
}

func twoPageChannels() *fakeSlack {
	return &fakeSlack{
		channelPages: map[string][]slack.Channel{
			"":   {*testChannel("C0GENERAL1", "general"), *testChannel("C0RANDOM01", "random")},
			"p2": {*testChannel(testChannelID, "ata-reunioes")},
		},
		nextCursor: map[string]string{"": "p2"},
	}
}

func sectionTexts(t *testing.T, v url.Values) []string {
	t.Helper()
	var blocks []struct {
		Type string `json:"type"`
		Text struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(v.Get("blocks")), &blocks))

	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		require.Equal(t, "section", b.Type)
		require.Equal(t, "mrkdwn", b.Text.Type)
		texts = append(texts, b.Text.Text)
	}
	return texts
}

func TestSlackPublishPostsSections(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{Channel: testChannelID}, nil)

	receipt, err := p.Publish(context.Background(), "", "Ata-f1-1700000000000", "## Decisões\n* **Prazo:** sexta")
	require.NoError(t, err)
	assert.Equal(t, Chat, receipt.Destination)
	assert.Equal(t, "1700000000.000001", receipt.ID)
	assert.True(t, receipt.Succeeded)

	require.Len(t, api.posts, 1)
	post := api.posts[0]
	assert.Equal(t, testChannelID, post.channel)
	assert.Equal(t, "Ata-f1-1700000000000", post.values.Get("text"))
	assert.Equal(t, []string{"*Decisões*\n• *Prazo:* sexta"}, sectionTexts(t, post.values))
}

func TestSlackPublishSplitsLongSummary(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{Channel: testChannelID}, nil)

	_, err := p.Publish(context.Background(), "", "Ata", strings.Repeat("x", 3001))
	require.NoError(t, err)

	texts := sectionTexts(t, api.posts[0].values)
	require.Len(t, texts, 2)
	assert.Len(t, texts[0], 3000)
	assert.Equal(t, "x", texts[1])
}

func TestSlackPublishRejectsOversizedSummary(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{Channel: testChannelID}, nil)

	_, err := p.Publish(context.Background(), "", "Ata", strings.Repeat("x", 50*3000+1))
	assert.ErrorIs(t, err, ErrTooManySegments)
	assert.Empty(t, api.posts)
}

func TestSlackPublishRejectsEmptySummary(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{Channel: testChannelID}, nil)

	_, err := p.Publish(context.Background(), "", "Ata", "")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Empty(t, api.posts)
}

func TestSlackPublishNotConfigured(t *testing.T) {
	p := NewSlackPublisher(nil, SlackOptions{Channel: testChannelID}, nil)

	receipt, err := p.Publish(context.Background(), "", "Ata", "texto")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, receipt.Succeeded)
}

func TestSlackPublishResolvesChannelName(t *testing.T) {
	api := twoPageChannels()
	p := newSlackPublisher(api, SlackOptions{}, nil)

	_, err := p.Publish(context.Background(), "#ata-reunioes", "Ata", "texto")
	require.NoError(t, err)
	assert.Equal(t, testChannelID, api.posts[0].channel)
}

func TestSlackPublishFileMode(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{Channel: testChannelID, Mode: "file"}, nil)

	receipt, err := p.Publish(context.Background(), "", "Ata-f1-1", "# Ata")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000001", receipt.ID)

	require.Len(t, api.posts, 1)
	assert.Equal(t, "Aqui está a ata da reunião: Ata-f1-1", api.posts[0].values.Get("text"))

	require.Len(t, api.uploads, 1)
	up := api.uploads[0]
	assert.Equal(t, testChannelID, up.Channel)
	assert.Equal(t, "Ata-f1-1.md", up.Filename)
	assert.Equal(t, "1700000000.000001", up.ThreadTimestamp)
	assert.Equal(t, len("# Ata"), up.FileSize)
	assert.Equal(t, "# Ata", api.uploaded[0])
}

func TestSlackSendFileSkipsUploadWhenIntroFails(t *testing.T) {
	api := &fakeSlack{postErr: errors.New("channel_not_found")}
	p := newSlackPublisher(api, SlackOptions{}, nil)

	_, _, err := p.SendFile(context.Background(), testChannelID, "Ata", []byte("conteúdo"))
	require.Error(t, err)
	assert.Empty(t, api.uploads)
}

func TestSlackSendMessageIdentity(t *testing.T) {
	api := &fakeSlack{}
	p := newSlackPublisher(api, SlackOptions{}, nil)

	_, err := p.SendMessage(context.Background(), testChannelID, "olá")
	require.NoError(t, err)

	v := api.posts[0].values
	assert.Equal(t, "olá", v.Get("text"))
	assert.Equal(t, "ATABot", v.Get("username"))
	assert.Equal(t, ":memo:", v.Get("icon_emoji"))
}

func TestSlackSendMessageUsesAdminName(t *testing.T) {
	api := &fakeSlack{
		members: []string{"U1"},
		users: map[string]*slack.User{
			"U1": {ID: "U1", RealName: "Ana Souza", IsOwner: true, Profile: slack.UserProfile{DisplayName: "ana"}},
		},
	}
	p := newSlackPublisher(api, SlackOptions{UsernameFromAdmin: true}, nil)

	_, err := p.SendMessage(context.Background(), testChannelID, "olá")
	require.NoError(t, err)
	assert.Equal(t, "ana", api.posts[0].values.Get("username"))
}

func TestSlackChannelIDFollowsCursor(t *testing.T) {
	api := twoPageChannels()
	p := newSlackPublisher(api, SlackOptions{}, nil)

	id, err := p.ChannelID(context.Background(), "ata-reunioes")
	require.NoError(t, err)
	assert.Equal(t, testChannelID, id)
	assert.Equal(t, []string{"", "p2"}, api.listedCursors)

	id, err = p.ChannelID(context.Background(), "ata-reunioes")
	require.NoError(t, err)
	assert.Equal(t, testChannelID, id)
	assert.Len(t, api.listedCursors, 2, "second lookup is served from cache")
}

func TestSlackChannelIDNotFound(t *testing.T) {
	api := twoPageChannels()
	p := newSlackPublisher(api, SlackOptions{}, nil)

	_, err := p.ChannelID(context.Background(), "inexistente")
	assert.ErrorIs(t, err, ErrChannelNotFound)
	assert.Equal(t, []string{"", "p2"}, api.listedCursors)
}

func TestSlackChannelAdminSkipsFailedLookups(t *testing.T) {
	api := &fakeSlack{
		members: []string{"U1", "U2", "U3"},
		users: map[string]*slack.User{
			"U2": {ID: "U2", RealName: "Bruno"},
			"U3": {ID: "U3", RealName: "Carla Dias", IsAdmin: true},
		},
	}
	p := newSlackPublisher(api, SlackOptions{}, nil)

	admin, err := p.ChannelAdmin(context.Background(), testChannelID)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "U3", admin.ID)
	assert.Equal(t, "Carla Dias", admin.Username)
	assert.Equal(t, 3, api.userInfoCalls)
}

func TestSlackChannelAdminNone(t *testing.T) {
	api := &fakeSlack{
		members: []string{"U2"},
		users:   map[string]*slack.User{"U2": {ID: "U2"}},
	}
	p := newSlackPublisher(api, SlackOptions{}, nil)

	admin, err := p.ChannelAdmin(context.Background(), testChannelID)
	require.NoError(t, err)
	assert.Nil(t, admin)
}

func TestDirectMessagePublisher(t *testing.T) {
	api := twoPageChannels()
	api.byEmail = map[string]*slack.User{
		"ana@example.com": {ID: "U9", RealName: "Ana", Profile: slack.UserProfile{Email: "ana@example.com"}},
	}
	sp := newSlackPublisher(api, SlackOptions{}, nil)
	dm := NewDirectMessagePublisher(sp, "ana@example.com", "#ata-reunioes")

	receipt, err := dm.Publish(context.Background(), "", "Ata-f1-1", "ignored")
	require.NoError(t, err)
	assert.Equal(t, ChatDM, receipt.Destination)
	assert.Equal(t, []string{"U9"}, api.opened)

	require.Len(t, api.posts, 1)
	post := api.posts[0]
	assert.Equal(t, "D0DM000001", post.channel)
	assert.Contains(t, post.values.Get("text"), "<@U9>")
	assert.Contains(t, post.values.Get("text"), "<#"+testChannelID+">")
	assert.Contains(t, post.values.Get("text"), "*Ata-f1-1*")
}

func TestDirectMessagePublisherUnknownEmail(t *testing.T) {
	sp := newSlackPublisher(&fakeSlack{}, SlackOptions{}, nil)
	dm := NewDirectMessagePublisher(sp, "ninguem@example.com", testChannelID)

	receipt, err := dm.Publish(context.Background(), "", "Ata", "")
	require.Error(t, err)
	assert.False(t, receipt.Succeeded)
}
