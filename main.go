package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/internal/admin"
	"github.com/vkart/vkart-bot/internal/config"
	"github.com/vkart/vkart-bot/internal/engine"
	"github.com/vkart/vkart-bot/internal/fulfillment"
	"github.com/vkart/vkart-bot/internal/middleware"
	"github.com/vkart/vkart-bot/internal/notify"
	"github.com/vkart/vkart-bot/store"
	"github.com/vkart/vkart-bot/types"
)

func main() {
	_ = config.LoadEnvFile("config.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration is invalid")
	}

	setupLogging(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pgStore.Close()

	sessions, stopSessions := buildSessionStore(cfg)
	defer stopSessions()

	settings := store.NewSettingsStore(types.Settings{
		TRXWalletAddress: cfg.TRXWalletAddress,
		CardPrice:        cfg.CardPrice,
	})

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("bot creation failed")
	}

	notifier := notify.NewTelegramNotifier(b)
	eng := engine.New(sessions, pgStore, settings, notifier)

	middlewares := middleware.New(pgStore)
	handlerChain := middlewares.ResolveUser(
		middlewares.ClassifyUpdate(
			eng.Handler(),
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	service := fulfillment.NewService(pgStore, notifier)
	adminServer := admin.NewServer(service, pgStore, settings, admin.NewAuth(cfg.AdminToken))

	httpServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           adminServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin API stopped")
			cancel()
		}
	}()

	log.Info().Msg("bot started, press Ctrl+C to stop")
	b.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin API shutdown failed")
	}
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(parsed)
}

// buildSessionStore prefers Redis and falls back to the in-process store when
// no Redis host is configured. The returned func releases whichever was built.
func buildSessionStore(cfg *config.Config) (types.SessionStore, func()) {
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := store.NewRedisClient(addr, cfg.RedisPassword, cfg.RedisDB, "vkart_bot")
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Info().Str("addr", addr).Msg("sessions backed by redis")
		return store.NewRedisSessionStore(rdb, cfg.SessionTTL()), func() { _ = rdb.Close() }
	}

	mem := store.NewMemorySessionStore(cfg.SessionTTL())
	mem.StartSweeper()
	log.Info().Msg("sessions backed by process memory")
	return mem, mem.Stop
}
