// Точка входа сервиса приёма анкет.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт хранилище медиафайлов, клиента Gemini и сервисный слой,
// запускает мониторинг зависимостей и HTTP-сервер с graceful shutdown.
// После остановки сервера дожидается фоновых задач обогащения.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/profile-intake/internal/api/handlers"
	"github.com/bigkaa/profile-intake/internal/config"
	"github.com/bigkaa/profile-intake/internal/database"
	"github.com/bigkaa/profile-intake/internal/enrichment"
	"github.com/bigkaa/profile-intake/internal/repository"
	"github.com/bigkaa/profile-intake/internal/server"
	"github.com/bigkaa/profile-intake/internal/service"
	"github.com/bigkaa/profile-intake/internal/storage/blobstore"
)

func main() {
	// 1. Конфигурация
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Логирование
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис анкет запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("blob_backend", cfg.BlobBackend),
	)

	// 3. Миграции
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. PostgreSQL
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище медиафайлов
	var (
		blobs       blobstore.BlobStore
		blobChecker handlers.ReadinessChecker
		uploadsDir  string
	)
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		s3, s3Err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3BucketURL(),
		})
		if s3Err != nil {
			logger.Error("Ошибка инициализации S3", slog.String("error", s3Err.Error()))
			os.Exit(1)
		}
		blobs, blobChecker = s3, s3
		logger.Info("Медиафайлы хранятся в S3",
			slog.String("endpoint", cfg.S3Endpoint),
			slog.String("bucket", cfg.S3Bucket),
		)
	default:
		fs, fsErr := blobstore.NewFileStore(cfg.UploadDir)
		if fsErr != nil {
			logger.Error("Ошибка инициализации каталога загрузок", slog.String("error", fsErr.Error()))
			os.Exit(1)
		}
		blobs, blobChecker, uploadsDir = fs, fs, fs.Dir()
		logger.Info("Медиафайлы хранятся локально", slog.String("dir", fs.Dir()))
	}

	// 6. ИИ-обогащение
	gemini, err := enrichment.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Ошибка создания клиента Gemini", slog.String("error", err.Error()))
		os.Exit(1)
	}
	enricher := enrichment.NewService(gemini, cfg.EnrichmentTimeout, logger)

	// 7. Репозитории и сервисы
	repos := repository.NewRepos(pool)
	txRunner := repository.NewTxRunner(pool)
	limits := service.UploadLimits{MaxFiles: cfg.MaxUploadFiles, MaxFileSize: cfg.MaxFileSize}

	dispatcher := service.NewDispatcher(cfg.EnrichmentConcurrency, logger)
	task := service.NewEnrichmentTask(enricher, repos.Profiles, logger)
	profilesSvc := service.NewProfileService(txRunner, repos, blobs, task, dispatcher, limits, logger)

	// 8. topologymetrics — мониторинг зависимостей
	dephealthSvc, err := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "profile-intake",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL,
		S3URL:         cfg.S3EndpointURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	}

	// 9. HTTP
	h := server.Handlers{
		Profiles:   handlers.NewProfilesHandler(profilesSvc, limits, cfg.PublicBaseURL, logger),
		Health:     handlers.NewHealthHandler(database.NewReadinessChecker(pool), blobChecker),
		UploadsDir: uploadsDir,
	}
	if strings.TrimSpace(cfg.StaticDir) != "" {
		h.SPA = handlers.NewSPAHandler(cfg.StaticDir)
		logger.Info("Раздача клиентского приложения", slog.String("dir", cfg.StaticDir))
	}

	srv := server.New(cfg, logger, h)
	runErr := srv.Run()
	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
	}

	// 10. Ожидание фоновых задач обогащения
	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if err := dispatcher.Wait(waitCtx); err != nil {
		logger.Warn("Не все задачи обогащения завершились до остановки",
			slog.String("error", err.Error()),
		)
	}
	cancel()

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Сервис анкет остановлен")
	if runErr != nil {
		os.Exit(1)
	}
}
