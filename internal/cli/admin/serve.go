package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dobbyjj/codeme/internal/api/handlers"
	"github.com/dobbyjj/codeme/internal/config"
	"github.com/dobbyjj/codeme/internal/indexing"
	"github.com/dobbyjj/codeme/internal/jobs"
	"github.com/dobbyjj/codeme/internal/openai"
	"github.com/dobbyjj/codeme/internal/repository"
	"github.com/dobbyjj/codeme/internal/search"
	"github.com/dobbyjj/codeme/internal/server"
	"github.com/dobbyjj/codeme/internal/service"
	"github.com/dobbyjj/codeme/internal/storage"
	"github.com/dobbyjj/codeme/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the codeme API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAuthTokenRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	qaLogRepo := repository.NewQALogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// The Azure OpenAI and AI Search clients report missing configuration
	// per call, so partial setups still serve the endpoints that work.
	openaiClient := openai.NewClient(openai.Config{
		Endpoint:        cfg.AzureOpenAIEndpoint,
		APIKey:          cfg.AzureOpenAIAPIKey,
		EmbedDeployment: cfg.AzureOpenAIEmbedDeployment,
		ChatDeployment:  cfg.AzureOpenAIChatDeployment,
		APIVersion:      cfg.AzureOpenAIAPIVersion,
	})
	searchClient := search.NewClient(search.Config{
		Endpoint:  cfg.SearchEndpoint,
		AdminKey:  cfg.SearchAdminKey,
		IndexName: cfg.SearchIndexName,
	})

	var blobStore service.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStore = s3Client
	} else {
		blobStore = &unconfiguredBlobStore{}
	}

	indexTrigger := indexing.NewClient(indexing.Config{
		WebhookURL:    cfg.IndexWebhookURL,
		CallbackToken: cfg.IndexCallbackToken,
	})

	uuidGen := &service.DefaultUUIDGenerator{}

	authSvc := service.NewAuthService(userRepo, tokenRepo, uuidGen)
	chatSvc := service.NewChatService(
		openaiClient,
		searchClient,
		openaiClient,
		service.NewPhraseClassifier(),
		service.NewSemanticNormalizer(openaiClient),
		groupRepo,
		linkRepo,
		txRunner,
		cfg.AzureOpenAIChatDeployment,
	)
	docSvc := service.NewDocumentService(docRepo, groupRepo, blobStore, indexTrigger, uuidGen)
	groupSvc := service.NewGroupService(groupRepo, docRepo, uuidGen)
	linkSvc := service.NewLinkService(linkRepo, docRepo, groupRepo, txRunner)
	qaLogSvc := service.NewQALogService(qaLogRepo)
	dashboardSvc := service.NewDashboardService(qaLogRepo, docRepo)

	var sweeper *jobs.Worker
	if cfg.LinkSweepIntervalSec > 0 {
		processor := jobs.NewLinkSweeper(linkRepo, tokenRepo)
		sweeper = jobs.NewWorker(processor, time.Duration(cfg.LinkSweepIntervalSec)*time.Second)
		go sweeper.Start(ctx)
		log.Println("link sweeper started")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    authSvc,
		AuthHandler:      handlers.NewAuthHandler(authSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		DocumentHandler:  handlers.NewDocumentHandler(docSvc, cfg.IndexCallbackToken),
		GroupHandler:     handlers.NewGroupHandler(groupSvc),
		LinkHandler:      handlers.NewLinkHandler(linkSvc),
		QALogHandler:     handlers.NewQALogHandler(qaLogSvc),
		DashboardHandler: handlers.NewDashboardHandler(dashboardSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// unconfiguredBlobStore keeps document endpoints routable when no blob
// storage is configured; each call reports the missing setting.
type unconfiguredBlobStore struct{}

func (s *unconfiguredBlobStore) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return "", fmt.Errorf("blob storage not configured: S3_ENDPOINT required")
}

func (s *unconfiguredBlobStore) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "", fmt.Errorf("blob storage not configured: S3_ENDPOINT required")
}

func (s *unconfiguredBlobStore) Head(ctx context.Context, key string) error {
	return fmt.Errorf("blob storage not configured: S3_ENDPOINT required")
}

func (s *unconfiguredBlobStore) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("blob storage not configured: S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
