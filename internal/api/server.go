package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/metrics"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/workflow"
)

// Workflow: операции движка, которые выставляет HTTP.
type Workflow interface {
	Assign(ctx context.Context, opportunityID string, role models.Role, userID, callerID string) (*models.Opportunity, error)
	StartAssessment(ctx context.Context, opportunityID string) (*models.Opportunity, error)
	SaveDraft(ctx context.Context, in workflow.ScoringInput) (*workflow.ScoreResult, error)
	Submit(ctx context.Context, in workflow.ScoringInput) (*workflow.ScoreResult, error)
	NewVersion(ctx context.Context, opportunityID, callerID string) (int, error)
	GetLatest(ctx context.Context, opportunityID, viewerID string, versionNo int) (*workflow.LatestView, error)
	History(ctx context.Context, opportunityID string) ([]workflow.VersionSummary, error)
	CombinedReview(ctx context.Context, opportunityID string) (*workflow.CombinedReview, error)
	Approve(ctx context.Context, in workflow.ApprovalInput) (*models.Opportunity, error)
	Ingest(ctx context.Context, records []models.CRMRecord) (int, error)
}

type Listing interface {
	List(ctx context.Context, q listing.Query) (*listing.Result, error)
	Get(ctx context.Context, id string) (*listing.Item, error)
}

// Directory: проверка вызывающего по справочнику пользователей.
type Directory interface {
	Get(id string) (models.User, bool)
}

type Deps struct {
	Workflow    Workflow
	Listing     Listing
	Directory   Directory
	Rubric      func() []models.RubricSection
	Reload      func(ctx context.Context) error
	Ping        func(ctx context.Context) error
	Log         *zap.Logger
	CORSOrigins []string
	Now         func() time.Time
}

type Server struct {
	deps   Deps
	log    *zap.Logger
	router *chi.Mux
}

func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	s := &Server{deps: d, log: d.Log}
	s.setupRouter()
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", headerUserID, headerUserRole},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Get("/export", s.handleExport)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Post("/assign", s.handleAssign)
				r.Post("/start", s.handleStart)
				r.Post("/approvals", s.handleApprove)
				r.Route("/assessment", func(r chi.Router) {
					r.Get("/", s.handleLatest)
					r.Put("/", s.handleSaveDraft)
					r.Post("/submit", s.handleSubmit)
					r.Post("/versions", s.handleNewVersion)
					r.Get("/history", s.handleHistory)
					r.Get("/review", s.handleReview)
				})
			})
		})

		r.Get("/rubric", s.handleRubric)
		r.With(s.requireRole(models.RoleGH)).Post("/ingest/opportunities", s.handleIngest)
		r.With(s.requireRole(models.RoleGH)).Post("/admin/reload", s.handleReload)
	})

	s.router = r
}

// Start: слушаем addr до отмены ctx, затем аккуратный Shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shCtx)
}
