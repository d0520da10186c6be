package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jomei/notionapi"
	"github.com/slack-go/slack"
	"google.golang.org/api/drive/v3"

	"meeting_minutes_publisher/config"
	"meeting_minutes_publisher/generator"
	"meeting_minutes_publisher/pipeline"
	"meeting_minutes_publisher/publisher"
	"meeting_minutes_publisher/transcript"
)

// app owns every destination client; they are built once and injected.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	notion   *publisher.NotionPublisher
	slack    *publisher.SlackPublisher
	drive    *publisher.DrivePublisher
	dm       *publisher.DirectMessagePublisher
	resolver *transcript.Resolver
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var notionClient *notionapi.Client
	if cfg.Notion.APIKey != "" {
		notionClient = notionapi.NewClient(notionapi.Token(cfg.Notion.APIKey))
	} else {
		logger.Warn("notion api key missing, document publishing disabled")
	}
	a.notion = publisher.NewNotionPublisher(notionClient, publisher.NotionOptions{
		ParentID:      cfg.Notion.ParentID,
		ParentType:    cfg.Notion.ParentType,
		TitleProperty: cfg.Notion.TitleProperty,
	}, logger)

	var slackClient *slack.Client
	if cfg.Slack.BotToken != "" {
		slackClient = slack.New(cfg.Slack.BotToken)
	} else {
		logger.Warn("slack bot token missing, chat publishing disabled")
	}
	a.slack = publisher.NewSlackPublisher(slackClient, publisher.SlackOptions{
		Channel:           cfg.Slack.Channel,
		Mode:              cfg.Slack.Mode,
		ChunkSize:         cfg.Slack.ChunkSize,
		Username:          cfg.Slack.Username,
		IconEmoji:         cfg.Slack.IconEmoji,
		UsernameFromAdmin: cfg.Slack.UsernameFromAdmin,
		LookupInterval:    cfg.Slack.LookupInterval,
	}, logger)
	if cfg.Slack.NotifyEmail != "" {
		a.dm = publisher.NewDirectMessagePublisher(a.slack, cfg.Slack.NotifyEmail, cfg.Slack.Channel)
	}

	var driveSvc *drive.Service
	if cfg.Drive.DriveConfigured() {
		svc, err := newDriveService(ctx, cfg.Drive)
		if err != nil {
			return nil, err
		}
		driveSvc = svc
	}
	if cfg.Drive.Enabled {
		a.drive = publisher.NewDrivePublisher(driveSvc, publisher.DriveOptions{
			FolderID: cfg.Drive.FolderID,
			Encoding: cfg.Drive.Encoding,
		}, logger)
	}
	a.resolver = transcript.NewResolver(driveSvc, transcript.Options{
		FallbackPath: cfg.Transcript.FallbackPath,
		MaxBytes:     cfg.Transcript.MaxBytes,
	}, logger)

	return a, nil
}

func newDriveService(ctx context.Context, dc config.DriveConfig) (*drive.Service, error) {
	creds := publisher.DriveCredentials{
		ClientID:     dc.ClientID,
		ClientSecret: dc.ClientSecret,
		RedirectURL:  dc.RedirectURL,
		RefreshToken: dc.RefreshToken,
	}
	if creds.RefreshToken == "" && dc.ServiceAccountPath != "" {
		data, err := os.ReadFile(dc.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("reading service account key: %w", err)
		}
		creds.ServiceAccountJSON = data
	}
	return publisher.NewDriveService(ctx, creds)
}

// orchestrator builds the summarizer and the pipeline over the app publishers.
func (a *app) orchestrator() (*pipeline.Orchestrator, error) {
	llm, err := generator.NewLLM(&generator.LLMSettings{
		Provider: a.cfg.LLM.Provider,
		Model:    a.cfg.LLM.Model,
		APIKey:   a.cfg.LLM.APIKey,
		BaseURL:  a.cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	summarizer, err := generator.NewSummarizer(llm, generator.PromptOptions{Language: a.cfg.LLM.Language}, a.logger)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{Policy: pipeline.Policy(a.cfg.Pipeline.Policy), Logger: a.logger}
	if a.drive != nil {
		opts.Files = a.drive
	}
	if a.dm != nil {
		opts.Notifier = a.dm
	}
	return pipeline.New(summarizer, a.notion, a.slack, opts)
}
