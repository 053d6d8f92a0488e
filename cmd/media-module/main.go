// Точка входа Media Module — модуль файлового хранилища книжного магазина.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует файловое хранилище, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/bookstore/media-module/internal/api/handlers"
	"github.com/bigkaa/bookstore/media-module/internal/config"
	"github.com/bigkaa/bookstore/media-module/internal/database"
	"github.com/bigkaa/bookstore/media-module/internal/i18n"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
	"github.com/bigkaa/bookstore/media-module/internal/server"
	"github.com/bigkaa/bookstore/media-module/internal/service"
	"github.com/bigkaa/bookstore/media-module/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Media Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// 3. Локализация сообщений API
	bundle := i18n.NewBundle(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки локализации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 6. Файловое хранилище
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища",
			slog.String("data_dir", cfg.DataDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 7. Repository и сервисный слой
	repo := repository.NewMediaRepository()
	validator := service.NewValidator()
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	beginner := service.PoolBeginner{Pool: pool}

	uploader := service.NewUploader(validator, store, beginner, repo, logger)
	batch := service.NewBatchUploader(uploader, cfg.MaxBatchFiles, cfg.BatchConcurrency, logger)
	media := service.NewMediaService(beginner, pool, repo, store, cache, logger)

	// 8. Readiness checker и API handler
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, cfg.DataDir)

	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		uploader,
		batch,
		media,
		bundle,
		cfg.PublicBaseURL,
		logger,
	)

	// 9. topologymetrics — мониторинг auth gateway (опционально)
	var dephealthSvc *service.DephealthService
	if cfg.AuthHealthURL != "" {
		dephealthSvc, err = service.NewDephealthService(
			"media-module",
			cfg.AuthHealthURL,
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("auth_health_url", cfg.AuthHealthURL),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	} else {
		logger.Info("MM_AUTH_HEALTH_URL не задан, мониторинг зависимостей отключён")
	}

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Media Module остановлен")
}
