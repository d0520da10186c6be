package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newLookupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve Slack and Drive identifiers",
	}

	// withApp builds the clients for one lookup and prints its result.
	withApp := func(fn func(cmd *cobra.Command, a *app, arg string) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			out, err := fn(cmd, a, arg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "channel NAME",
		Short: "Find a channel id by name (public and private channels the bot is in)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, name string) (any, error) {
			id, err := a.slack.ResolveChannel(cmd.Context(), name)
			return map[string]string{"name": name, "id": id}, err
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "user EMAIL",
		Short: "Find a workspace member by email",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, email string) (any, error) {
			return a.slack.UserByEmail(cmd.Context(), email)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "admin CHANNEL",
		Short: "Find the first admin or owner among a channel's members",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, ref string) (any, error) {
			id, err := a.slack.ResolveChannel(cmd.Context(), ref)
			if err != nil {
				return nil, err
			}
			return a.slack.ChannelAdmin(cmd.Context(), id)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dm EMAIL",
		Short: "Open the direct-message conversation with a member",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, email string) (any, error) {
			m, err := a.slack.UserByEmail(cmd.Context(), email)
			if err != nil {
				return nil, err
			}
			id, err := a.slack.DirectMessageID(cmd.Context(), m.ID)
			return map[string]string{"user": m.ID, "channel": id}, err
		}),
	})

	var since time.Duration
	files := &cobra.Command{
		Use:   "files [FOLDER]",
		Short: "List recent files in a Drive folder (default drive.folder_id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, folder string) (any, error) {
			if folder == "" {
				folder = c.cfg.Drive.FolderID
			}
			return a.resolver.RecentFiles(cmd.Context(), folder, time.Now().Add(-since))
		}),
	}
	files.Flags().DurationVar(&since, "since", 5*time.Minute, "look back this far")
	cmd.AddCommand(files)

	return cmd
}
