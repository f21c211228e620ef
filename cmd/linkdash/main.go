package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/analytics"
	"github.com/linkdash/linkdash/internal/auth"
	"github.com/linkdash/linkdash/internal/config"
	"github.com/linkdash/linkdash/internal/database"
	"github.com/linkdash/linkdash/internal/handlers"
	"github.com/linkdash/linkdash/internal/ratelimit"
	"github.com/linkdash/linkdash/internal/repositories"
	"github.com/linkdash/linkdash/internal/router"
	"github.com/linkdash/linkdash/internal/service"
	"github.com/linkdash/linkdash/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Инициализация конфигурации
	cfg := config.NewConfig()

	// Режим database: подключение, миграции, репозиторий
	var db database.DBInterface
	var repo store.Repository
	var clickRepo analytics.ClickRepository
	if cfg.Mode == "database" {
		if err := database.RunMigrations(cfg.DatabaseDSN, cfg.PgMigrationsPath, logger); err != nil {
			logger.Fatal("Ошибка применения миграций", zap.Error(err))
		}
		pg, err := database.NewDB(cfg.DatabaseDSN, logger)
		if err != nil {
			logger.Fatal("Ошибка подключения к БД", zap.Error(err))
		}
		defer pg.Close()
		db = pg

		linkRepo := repositories.NewLinkRepository(pg)
		repo = linkRepo
		clickRepo = linkRepo
	}

	st := store.New(repo, logger, store.Options{
		AliasLength:   cfg.AliasLength,
		AliasAttempts: cfg.AliasAttempts,
	})
	if err := st.Warm(context.Background()); err != nil {
		logger.Fatal("Ошибка прогрева кэша ссылок", zap.Error(err))
	}

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow())
	agg := analytics.New(st, analytics.NewDemoSampler(nil), clickRepo, logger)
	if err := agg.Warm(context.Background()); err != nil {
		logger.Fatal("Ошибка прогрева журнала кликов", zap.Error(err))
	}
	resolver := service.NewResolver(st, limiter, agg, logger, cfg.EnforceRateLimit)
	authService := auth.New(cfg.AuthSecret)

	handler := handlers.NewHandler(st, resolver, agg, authService, logger, db)
	r := router.NewRouter(handler, logger)

	logger.Info("Сервер запущен на ", zap.String("address", cfg.ServerAddress))
	if cfg.EnableHTTPS {
		if err := http.ListenAndServeTLS(cfg.ServerAddress, cfg.TLSCertPath, cfg.TLSKeyPath, r); err != nil {
			logger.Fatal("Ошибка при запуске сервера: ", zap.Error(err))
		}
		return
	}
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatal("Ошибка при запуске сервера: ", zap.Error(err))
	}
}
