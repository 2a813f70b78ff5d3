// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"staking-engine/internal/config"
	"staking-engine/internal/handler"
	"staking-engine/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	accounts Accounts

	accountHandler *handler.AccountHandler
	packageHandler *handler.PackageHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	StakingService *service.StakingService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Str("command", command(c.Text())).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	units := handler.Units{Decimals: deps.Config.Program.Decimals}
	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accounts:       deps.StakingService,
		accountHandler: handler.NewAccountHandler(deps.StakingService, units),
		packageHandler: handler.NewPackageHandler(deps.StakingService, units),
		adminHandler:   handler.NewAdminHandler(deps.StakingService, units),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(NewChatGate(b.cfg, b.accounts).Middleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// Account
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/me", b.accountHandler.HandleMe)
	b.bot.Handle("/topup", b.accountHandler.HandleTopUp)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)
	b.bot.Handle("/top", b.accountHandler.HandleTop)

	// Packages
	b.bot.Handle("/pool", b.packageHandler.HandlePool)
	b.bot.Handle("/stake", b.packageHandler.HandleStake)
	b.bot.Handle("/packages", b.packageHandler.HandlePackages)
	b.bot.Handle("/release", b.packageHandler.HandleRelease)
	b.bot.Handle("/exit", b.packageHandler.HandleExit)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg, b.accounts))
	adminGroup.Handle("/init", b.adminHandler.HandleInit)
	adminGroup.Handle("/referral", b.adminHandler.HandleReferral)
	adminGroup.Handle("/fund", b.adminHandler.HandleFund)
	adminGroup.Handle("/fund_pool", b.adminHandler.HandleFundPool)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
