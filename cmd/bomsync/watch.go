package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/notify"
	"github.com/zulandar/bomsync/internal/notify/discord"
	"github.com/zulandar/bomsync/internal/notify/slack"
)

func newWatchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the notification and scheduled-refresh daemon",
		Long: `Tails the history ledger and fans new events out to the configured
notification sinks (Slack, Discord, shell command). With schedule.refresh_cron
set, also refreshes every tracked rack on that cadence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	return cmd
}

func runWatch(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return err
	}

	var eng notify.Refresher
	if cfg.Schedule.RefreshCron != "" {
		// Scheduled refreshes need the full engine; plain notification does not.
		e, store, err := openArenaEngine(cfg, gormDB)
		if err != nil {
			return err
		}
		defer store.Close()
		eng = e
	}

	d, err := notify.NewDaemon(notify.DaemonOpts{
		DB:       gormDB,
		Config:   cfg,
		Adapters: adapters,
		Engine:   eng,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}

// buildAdapters constructs every notification sink named in the config. A
// partially configured sink is an error, not a silent skip.
func buildAdapters(cfg *config.Config) ([]notify.Adapter, error) {
	var adapters []notify.Adapter

	if cfg.Notify.Slack.Token != "" || cfg.Notify.Slack.Channel != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if cfg.Notify.Discord.Token != "" || cfg.Notify.Discord.Channel != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if cfg.Notify.Command != "" {
		a, err := notify.NewCommand(notify.CommandOpts{Template: cfg.Notify.Command})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return adapters, nil
}
