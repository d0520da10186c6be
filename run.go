package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meeting_minutes_publisher/pipeline"
	"meeting_minutes_publisher/transcript"
)

type runFlags struct {
	transcriptPath string
	fileID         string
	parent         string
	channel        string
	folder         string
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Summarize one transcript and publish it",
		Long: `run performs a single pipeline run outside the webhook. The transcript comes
from --transcript, or from Drive when only --file-id is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.transcriptPath == "" && f.fileID == "" {
				return fmt.Errorf("--transcript or --file-id is required")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			ev := transcript.Event{FileID: f.fileID}
			if f.transcriptPath != "" {
				data, err := os.ReadFile(f.transcriptPath)
				if err != nil {
					return err
				}
				ev.Content = string(data)
			}
			tr, err := a.resolver.Resolve(ctx, ev)
			if err != nil {
				return err
			}

			res, runErr := orch.Run(ctx, pipeline.Request{
				Transcript:     tr,
				DocumentParent: f.parent,
				ChatChannel:    f.channel,
				FolderID:       f.folder,
			})
			if res != nil {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&f.transcriptPath, "transcript", "", "transcript text file")
	cmd.Flags().StringVar(&f.fileID, "file-id", "", "Drive file id (names the artifact; fetched when --transcript is absent)")
	cmd.Flags().StringVar(&f.parent, "parent", "", "Notion parent page id (overrides notion.parent_id)")
	cmd.Flags().StringVar(&f.channel, "channel", "", "Slack channel name or id (overrides slack.channel)")
	cmd.Flags().StringVar(&f.folder, "folder", "", "Drive folder id (overrides drive.folder_id)")
	return cmd
}
