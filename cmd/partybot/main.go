package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/programmingdumpster/partybot/external/config"
	"github.com/programmingdumpster/partybot/external/discord"
	eventsimpl "github.com/programmingdumpster/partybot/external/events"
	repositoryimpl "github.com/programmingdumpster/partybot/external/repository"
	"github.com/programmingdumpster/partybot/internal/bot"
	"github.com/programmingdumpster/partybot/internal/config"
	discordpkg "github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/games"
	"github.com/programmingdumpster/partybot/internal/metrics"
	"github.com/programmingdumpster/partybot/internal/party"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	snapshotSaveTimeout   = 15 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	eventsimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	games.RegisterDI(injector)
	bot.RegisterDI(injector)
	party.RegisterDI(injector)

	return injector
}

func mustInvoke[T any](injector do.Injector, what string) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		slog.Error("failed to resolve "+what, "error", err)
		os.Exit(1)
	}
	return v
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc := mustInvoke[discordpkg.Client](injector, "discord client")
	manager := mustInvoke[*bot.Manager](injector, "bot manager")
	service := mustInvoke[*party.Service](injector, "party service")
	store := mustInvoke[*party.Store](injector, "party store")
	scheduler := mustInvoke[*party.Scheduler](injector, "lifecycle scheduler")

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.MetricsAddr != "" {
		metrics.InitMetrics()
		metrics.ServeMetrics(runCtx, cfg.MetricsAddr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	botUserID, err := dc.GetBotUserID()
	if err != nil {
		slog.Error("failed to resolve bot user id", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: bot identity resolved", "bot_user_id", botUserID)

	commands := bot.SlashCommands()
	if err := dc.UpsertGuildSlashCommands(cfg.DiscordGuildID, commands); err != nil {
		slog.Error("failed to upsert slash commands", "error", err, "guild_id", cfg.DiscordGuildID)
		os.Exit(1)
	}

	dc.RegisterSlashCommandHandler(manager.HandleSlashCommand)
	dc.RegisterButtonHandler(manager.HandleButton)
	dc.RegisterDirectMessageHandler(manager.HandleDirectMessage)
	dc.RegisterReactionAddHandler(manager.HandleReaction)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "commands", len(commands))
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(runCtx)
		close(schedulerDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	stop()
	<-schedulerDone
	manager.Close()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
	defer saveCancel()
	if err := store.Save(saveCtx, service.Registry()); err != nil {
		slog.Error("failed to save party snapshot on shutdown", "error", err)
	}
}
