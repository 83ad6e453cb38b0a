package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"yt-dl-bot/internal/adapters/bot"
	"yt-dl-bot/internal/adapters/media"
	"yt-dl-bot/internal/adapters/repo"
	"yt-dl-bot/internal/adapters/resolver"
	"yt-dl-bot/internal/adapters/search"
	"yt-dl-bot/internal/adapters/users"
	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/cache"
	"yt-dl-bot/internal/infra/config"
	"yt-dl-bot/internal/infra/db"
	httpserver "yt-dl-bot/internal/infra/http"
	"yt-dl-bot/internal/infra/log"
	"yt-dl-bot/internal/infra/metrics"
	"yt-dl-bot/internal/usecase/cleanup"
	"yt-dl-bot/internal/usecase/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	startedAt := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	tg := bot.NewAPI(botAPI, cfg.Telegram.SendRPS)
	logger.Info().Str("username", tg.Username()).Msg("бот авторизован")

	videos, registry, closeStores := buildStores(ctx, cfg, logger)
	defer closeStores()

	sessions := session.NewStore(cfg.Flow.SessionTTL)
	defer sessions.Close()
	cleaner := cleanup.NewScheduler(tg, logger)

	metrics.RegisterGauge(prometheus.DefaultRegisterer, "bot_active_sessions", "Активные сессии чатов", func() float64 {
		return float64(sessions.Len())
	})
	metrics.RegisterGauge(prometheus.DefaultRegisterer, "bot_pending_cleanups", "Взведённые таймеры удаления сообщений", func() float64 {
		return float64(cleaner.Pending())
	})

	deps := bot.Deps{
		Resolver: buildResolver(cfg),
		Search:   buildSearch(ctx, cfg, logger),
		Videos:   videos,
		Sessions: sessions,
		Cleanup:  cleaner,
		Users:    registry,
	}
	if cfg.Delivery.Mode == config.DeliveryUpload {
		deps.Media = media.NewHTTPFetcher(cfg.Delivery.MediaTimeout)
	}
	handler := bot.NewHandler(tg, logger, deps, bot.Options{
		BotName:         cfg.BotName,
		BotUsername:     tg.Username(),
		UploadMedia:     cfg.Delivery.Mode == config.DeliveryUpload,
		SearchLimit:     cfg.Search.Limit,
		CacheTTL:        cfg.Flow.CacheTTL,
		AutoDelete:      cfg.Flow.AutoDelete,
		CancelDelete:    cfg.Flow.CancelDelete,
		ErrorDelete:     cfg.Flow.ErrorDelete,
		LoadingInterval: cfg.Flow.LoadingInterval,
		StartedAt:       startedAt,
	})

	// апдейты обрабатываются параллельно, остановка ждёт начатые
	var inflight sync.WaitGroup
	dispatch := func(upd tgbotapi.Update) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			handler.HandleUpdate(ctx, upd)
		}()
	}

	server := httpserver.NewServer(logger)
	g, gctx := errgroup.WithContext(ctx)

	if cfg.UseWebhook() {
		path, err := webhookPath(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный TG_WEBHOOK_URL")
		}
		server.MountWebhook(path, cfg.Telegram.Secret, func(_ context.Context, upd tgbotapi.Update) {
			dispatch(upd)
		})
		if err := tg.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.Secret); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
		logger.Info().Str("path", path).Msg("режим вебхука")
	} else {
		if err := tg.DeleteWebhook(ctx); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		g.Go(func() error {
			pollUpdates(gctx, botAPI, logger, dispatch)
			return nil
		})
	}

	g.Go(func() error {
		return server.Start(fmt.Sprintf(":%d", cfg.Port))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("остановка бота")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
	}
	inflight.Wait()
	cancelled := cleaner.Stop()
	logger.Info().Int("cleanups_cancelled", cancelled).Msg("бот остановлен")
}

// pollUpdates читает апдейты через long polling до отмены контекста.
func pollUpdates(ctx context.Context, botAPI *tgbotapi.BotAPI, logger zerolog.Logger, dispatch func(tgbotapi.Update)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := botAPI.GetUpdatesChan(u)
	logger.Info().Msg("режим long polling")
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			dispatch(upd)
		}
	}
}

func buildResolver(cfg config.AppConfig) domain.VideoResolver {
	if cfg.Resolver.Mode == config.ResolverNative {
		return resolver.NewNative(cfg.Resolver.Timeout)
	}
	return resolver.NewWorkerAPI(cfg.Resolver.APIURL, cfg.Resolver.Timeout)
}

func buildSearch(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) domain.SearchProvider {
	yt, err := search.NewYouTube(ctx, cfg.Search.APIKey, cfg.Resolver.Timeout)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			logger.Warn().Msg("YOUTUBE_API_KEY не задан, поиск отключён")
		} else {
			logger.Error().Err(err).Msg("поиск отключён")
		}
		return nil
	}
	return yt
}

// buildStores выбирает хранилища: Redis для кэша роликов и пользователей,
// Postgres для пользователей, иначе память процесса.
func buildStores(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.VideoCache, domain.UserRegistry, func()) {
	var (
		videos   domain.VideoCache
		registry domain.UserRegistry
		closers  []func()
	)

	if cfg.RedisAddr != "" {
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		closers = append(closers, func() { _ = client.Close() })
		videos = cache.NewRedisVideos(client)
		registry = users.NewRedis(client)
		logger.Info().Msg("кэш роликов и пользователи хранятся в Redis")
	} else {
		mem := cache.NewMemoryVideos()
		closers = append(closers, mem.Close)
		videos = mem
	}

	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		closers = append(closers, pool.Close)
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
		}
		registry = pg
		logger.Info().Msg("пользователи хранятся в Postgres")
	}

	if registry == nil {
		registry = users.NewMemory()
	}
	return videos, registry, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func webhookPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}
