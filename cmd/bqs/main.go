package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/api"
	"github.com/Spok95/bqs/internal/config"
	"github.com/Spok95/bqs/internal/ctxutil"
	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/directory"
	"github.com/Spok95/bqs/internal/jobs"
	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/logging"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/notify"
	"github.com/Spok95/bqs/internal/observability"
	"github.com/Spok95/bqs/internal/rubric"
	"github.com/Spok95/bqs/internal/workflow"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctxutil.DefaultDBTimeout = cfg.DBTimeout
	if cfg.Location != nil {
		time.Local = cfg.Location
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	sections, err := loadRubric(ctx, database, cfg.RubricFile)
	if err != nil {
		logger.Fatal("rubric", zap.Error(err))
	}
	reg := rubric.NewRegistry(sections)

	dir, err := directory.Load(ctx, database)
	if err != nil {
		logger.Fatal("directory", zap.Error(err))
	}
	logger.Info("caches loaded", zap.Int("rubric_sections", len(sections)), zap.Int("users", dir.Len()))

	opts := []workflow.Option{workflow.WithLogger(logger.Named("workflow"))}
	if cfg.BotToken != "" {
		tg, err := notify.Dial(cfg.BotToken, logger.Named("notify"))
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			opts = append(opts, workflow.WithNotifier(tg))
		}
	}
	engine := workflow.New(database, reg, dir, opts...)

	runner := jobs.New(ctx, logger.Named("jobs"))
	runner.Every(cfg.MetricsRefresh, "status_gauge", jobs.StatusGauge(database))
	runner.Every(cfg.MetricsRefresh, "db_ping", jobs.DBPing(func(c context.Context) error { return db.Ping(c, database) }))

	srv := api.NewServer(api.Deps{
		Workflow:  engine,
		Listing:   listing.New(database, logger.Named("listing")),
		Directory: dir,
		Rubric:    reg.Sections,
		Reload: func(c context.Context) error {
			sections, err := loadRubric(c, database, cfg.RubricFile)
			if err != nil {
				return err
			}
			reg.Reload(sections)
			return dir.Reload(c, database)
		},
		Ping:        func(c context.Context) error { return db.Ping(c, database) },
		Log:         logger.Named("http"),
		CORSOrigins: cfg.CORSOrigins,
	})

	logger.Info("bqs started", zap.String("version", version), zap.String("env", cfg.Env))
	if err := srv.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http server", zap.Error(err))
	}
	logger.Info("bqs stopped")
}

// loadRubric: YAML (файл или встроенный), затем upsert в rubric_sections.
func loadRubric(ctx context.Context, database *sql.DB, path string) ([]models.RubricSection, error) {
	raw, err := rubric.Source(path)
	if err != nil {
		return nil, err
	}
	sections, err := rubric.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := db.SeedRubric(ctx, database, sections); err != nil {
		return nil, err
	}
	return sections, nil
}
