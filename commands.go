package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"release-notifier-bot/bot"
	"release-notifier-bot/catalog"
	"release-notifier-bot/config"
	"release-notifier-bot/db"
	"release-notifier-bot/release"
)

func newRootCommand() *cobra.Command {
	var configPath string
	var c config.Config

	root := &cobra.Command{
		Use:           "release-notifier-bot",
		Short:         "Telegram bot announcing new SubsPlease releases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			c = loaded
			zerolog.SetGlobalLevel(c.Level())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file path")

	root.AddCommand(
		newRunCommand(&c),
		newMigrateCommand(&c),
		newRefreshCommand(&c),
		newCheckCommand(&c),
	)
	return root
}

func newRunCommand(c *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the release feed and answer chat commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.Validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			confirm := make(chan struct{})
			failed := make(chan error, 1)
			go func() {
				failed <- bot.Start(ctx, *c, confirm)
			}()
			s := make(chan os.Signal, 1)
			signal.Notify(s, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-failed:
				cancel()
				return err
			case sig := <-s:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			}
			cancel()
			<-confirm
			return nil
		},
	}
}

func newMigrateCommand(c *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openDB(c)
			defer closeDB(store)
			if err := store.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func newRefreshCommand(c *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Scrape the metadata of every known show once",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openDB(c)
			defer closeDB(store)
			scraper := catalog.NewScraper(c.SiteURL, c.ScheduleURL, c.RequestTimeout())
			return catalog.New(store, scraper, c.ScrapeInterval()).RefreshAll(cmd.Context())
		},
	}
}

func newCheckCommand(c *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List the releases the next poll would announce, without notifying",
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := release.NewSource(c.RSSLink, c.RequestTimeout()).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			store := openDB(c)
			defer closeDB(store)
			cursor, err := store.GetCursor()
			if errors.Is(err, db.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no cursor stored yet, the first poll only records the newest release")
				return nil
			}
			if err != nil {
				return err
			}
			items := release.NewItems(feed, cursor)
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no new releases")
			}
			for _, item := range items {
				fmt.Fprintln(cmd.OutOrStdout(), item)
			}
			return nil
		},
	}
}

func openDB(c *config.Config) *db.DB {
	store := db.New(c.DBAddress, c.DBUser, c.DBPassword, c.DB)
	if c.Debug {
		store.EnableDebug()
	}
	return store
}

func closeDB(store *db.DB) {
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("couldn't close database")
	}
}
