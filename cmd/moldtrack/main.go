// Точка входа сервиса учёта обслуживания пресс-форм.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт сервисный слой и API handlers, запускает HTTP-сервер с
// сессионным middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/arturkryukov/moldtrack/internal/api/handlers"
	"github.com/arturkryukov/moldtrack/internal/api/middleware"
	"github.com/arturkryukov/moldtrack/internal/auth"
	"github.com/arturkryukov/moldtrack/internal/config"
	"github.com/arturkryukov/moldtrack/internal/database"
	"github.com/arturkryukov/moldtrack/internal/repository"
	"github.com/arturkryukov/moldtrack/internal/server"
	"github.com/arturkryukov/moldtrack/internal/service"
	"github.com/arturkryukov/moldtrack/internal/watch"
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
	logger.Info("Сервис запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Repositories
	jobRepo := repository.NewJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// 6. Реестр подписчиков real-time снимков
	hub := watch.NewHub(logger)

	// 7. Services
	jobsSvc := service.NewJobService(jobRepo, hub, cfg.MaxImageBytes, logger)
	usersSvc := service.NewUserService(userRepo, logger)
	statsSvc := service.NewStatsService(jobRepo, userRepo, logger)
	historySvc := service.NewHistoryService(jobRepo, logger)

	// 8. Session Manager — шифрование сессионных cookie (AES-256-GCM)
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookie)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("MT_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	// 9. Readiness checker (PostgreSQL)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		jobsSvc,
		usersSvc,
		statsSvc,
		historySvc,
		sessionMgr,
		hub,
		cfg.SSEKeepalive,
		logger,
	)

	// 11. Сессионный middleware
	sessionAuth := middleware.NewSessionAuth(sessionMgr, logger)

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, sessionAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Сервис остановлен")
}
