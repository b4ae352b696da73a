package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tierbot/internal/bot"
	"tierbot/internal/config"
	"tierbot/internal/metrics"
	"tierbot/internal/room"
	"tierbot/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tierbot",
		Short: "Discord bot for tiering rooms and the public server",
		Long: `tierbot keeps tiering room channel names up to date, posts the tiering
guides, and runs the public server features: the quick links message,
the booster role and the maintenance notices.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default $TIERBOT_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(roomCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to discord and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			documents, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer documents.Close()

			session, err := discordgo.New("Bot " + cfg.Discord.Token)
			if err != nil {
				return fmt.Errorf("could not create discord session: %w", err)
			}
			tierbot := bot.New(cfg, session, store.NewServers(documents))

			if cfg.Metrics.Addr != "" {
				metrics.Init()
				go func() {
					if err := metrics.Serve(ctx, cfg.Metrics.Addr, tierbot.Ready); err != nil {
						log.Error().Err(err).Msg("Metrics server stopped")
					}
				}()
			}

			log.Info().Bool("pubcord", cfg.Pubcord.Enabled).Bool("tiering", cfg.Tiering.Enabled).Msg("Starting tierbot")
			return tierbot.Run(ctx)
		},
	}
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Replace the slash commands in the configured guilds",
		RunE: func(cmd *cobra.Command, args []string) error {

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Discord.AppId == "" {
				return errors.New("discord.app_id (or DISCORD_APP_ID) is required to register commands")
			}
			session, err := discordgo.New("Bot " + cfg.Discord.Token)
			if err != nil {
				return fmt.Errorf("could not create discord session: %w", err)
			}
			return bot.RegisterCommands(session, cfg.Discord.AppId, cfg.Discord.Guilds)
		},
	}
}

func roomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room <current-name> [code] [spots]",
		Short: "Show the name a room channel would get, without touching discord",
		Example: `  tierbot room g1-xxxxx 12345 3
  tierbot room g1-12345-3 "" f`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update room.Update
			if len(args) > 1 {
				update.Code = args[1]
			}
			if len(args) > 2 {
				update.Spots = args[2]
			}
			name, _, err := room.ApplyUpdate(args[0], update)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
