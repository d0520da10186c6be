package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"meeting_minutes_publisher/config"
	"meeting_minutes_publisher/logging"
)

// cli carries what PersistentPreRunE prepared for the subcommands.
type cli struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	logger   *slog.Logger
	logClose io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "minutes",
		Short: "Publish meeting minutes to Notion, Slack and Google Drive",
		Long: `minutes turns a meeting transcript into structured minutes (ata) and
publishes them to a Notion page, a Slack channel and optionally a Drive folder.

Example usage:
  minutes serve                             # listen for Drive webhook events
  minutes run --transcript meet.txt         # one run from a local file
  minutes lookup channel ata-reunioes       # resolve a Slack channel id`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.logClose != nil {
				return c.logClose.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default config/config.json or ./config.*)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(c), newRunCmd(c), newLookupCmd(c))
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		WithSource: cfg.Logging.WithSource,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.cfg, c.logger, c.logClose = cfg, logger, closer
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
