// Package app assembles the bot and runs the Discord gateway next to the HTTP server.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skyrush/cogs"
	"skyrush/config"
	"skyrush/utils"
	"skyrush/webhook"
)

// Status is the bot state reported by the health endpoint.
type Status struct {
	v atomic.Value
}

func NewStatus() *Status {
	s := &Status{}
	s.Set("starting")
	return s
}

func (s *Status) Set(status string) { s.v.Store(status) }

func (s *Status) Get() string {
	status, _ := s.v.Load().(string)
	return status
}

type App struct {
	cfg     config.Config
	tower   *cogs.Tower
	economy *cogs.Economy
	webhook *webhook.Server
	status  *Status
	logger  *zap.Logger
}

func NewApp(cfg config.Config, tower *cogs.Tower, economy *cogs.Economy, server *webhook.Server, status *Status, logger *zap.Logger) *App {
	return &App{
		cfg:     cfg,
		tower:   tower,
		economy: economy,
		webhook: server,
		status:  status,
		logger:  logger,
	}
}

// Run serves HTTP and, when a token is configured, the Discord gateway until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.webhook.ListenAndServe(ctx, ":"+a.cfg.Port)
	})
	g.Go(func() error {
		return a.runDiscord(ctx)
	})
	return g.Wait()
}

func (a *App) runDiscord(ctx context.Context) error {
	if a.cfg.BotToken == "" {
		a.logger.Warn("BOT_TOKEN not set, Discord bot will not connect")
		a.status.Set("no_token")
		<-ctx.Done()
		return nil
	}

	session, err := discordgo.New("Bot " + a.cfg.BotToken)
	if err != nil {
		a.status.Set("error")
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onInteractionCreate)

	if err := session.Open(); err != nil {
		a.status.Set("connection_failed")
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	a.status.Set("running")
	a.logger.Info("bot is now running")

	<-ctx.Done()
	a.status.Set("shutting_down")
	a.logger.Info("gracefully shutting down")
	if err := session.Close(); err != nil {
		return fmt.Errorf("close Discord session: %w", err)
	}
	return nil
}

func (a *App) onReady(s *discordgo.Session, event *discordgo.Ready) {
	a.logger.Info("discord bot logged in", zap.String("user", event.User.Username), zap.String("user_id", event.User.ID))
	a.status.Set("online")

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: a.cfg.CommandPrefix + "tower | " + a.cfg.CommandPrefix + "help",
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: "online",
	}); err != nil {
		a.logger.Warn("failed to update status", zap.Error(err))
	}

	if err := registerSlashCommands(s); err != nil {
		a.logger.Error("failed to register slash commands", zap.Error(err))
	}
}

func registerSlashCommands(s *discordgo.Session) error {
	commands := append([]*discordgo.ApplicationCommand{cogs.RegisterTowerCommands()}, cogs.RegisterEconomyCommands()...)
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commands); err != nil {
		return fmt.Errorf("failed to overwrite %d commands: %w", len(commands), err)
	}
	return nil
}

func (a *App) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || !strings.HasPrefix(m.Content, a.cfg.CommandPrefix) {
		return
	}
	a.tower.HandleMessage(s, m)
	a.economy.HandleMessage(s, m)
}

func (a *App) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "tower":
			a.tower.HandleCommand(s, i)
		case "balance", "leaderboard":
			a.economy.HandleCommand(s, i)
		}
	case discordgo.InteractionMessageComponent:
		if strings.HasPrefix(i.MessageComponentData().CustomID, "tower_") {
			a.tower.HandleInteraction(s, i)
			return
		}
		if err := utils.RespondEphemeral(s, i, "This button has expired."); err != nil {
			a.logger.Debug("stale button reply failed", zap.Error(err))
		}
	}
}
