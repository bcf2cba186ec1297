package workflow

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/directory"
	"github.com/Spok95/bqs/internal/metrics"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
)

// Notifier: уведомления после коммита. Ошибки доставки не влияют на операцию.
type Notifier interface {
	FastTrack(ctx context.Context, o models.Opportunity, overall int, recipients []models.User)
	Assigned(ctx context.Context, o models.Opportunity, role models.Role, assignee models.User)
}

type nopNotifier struct{}

func (nopNotifier) FastTrack(context.Context, models.Opportunity, int, []models.User)      {}
func (nopNotifier) Assigned(context.Context, models.Opportunity, models.Role, models.User) {}

// Engine: машина состояний оценки. Каждая изменяющая операция: одна транзакция,
// которая начинается с блокировки строки возможности.
type Engine struct {
	db       *sql.DB
	rubric   *rubric.Registry
	dir      *directory.Directory
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(database *sql.DB, reg *rubric.Registry, dir *directory.Directory, opts ...Option) *Engine {
	e := &Engine{
		db:       database,
		rubric:   reg,
		dir:      dir,
		notifier: nopNotifier{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// lock: строка возможности под FOR UPDATE или NotFound.
func (e *Engine) lock(ctx context.Context, tx *sql.Tx, id string) (*models.Opportunity, error) {
	o, err := db.LockOpportunity(ctx, tx, id)
	if err != nil {
		return nil, storeErr("lock opportunity", err)
	}
	if o == nil {
		return nil, notFound("opportunity %s not found", id)
	}
	return o, nil
}

// moveTo проверяет переход и меняет статус в памяти.
func (e *Engine) moveTo(o *models.Opportunity, to status) error {
	from := o.Status
	if err := checkTransition(from, to); err != nil {
		return err
	}
	o.Status = to
	return nil
}

// observeTransition: после коммита: метрика и лог, если статус поменялся.
func (e *Engine) observeTransition(o *models.Opportunity, from status, op string) {
	if from == o.Status {
		return
	}
	metrics.Transitions.WithLabelValues(string(o.Status)).Inc()
	e.log.Info("workflow transition",
		zap.String("op", op),
		zap.String("opportunity_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
	)
}

func (e *Engine) users(ids ...string) []models.User {
	var out []models.User
	for _, id := range ids {
		if id == "" {
			continue
		}
		if u, ok := e.dir.Get(id); ok {
			out = append(out, u)
		}
	}
	return out
}

// Rubric: реестр рубрики, которым пользуется движок.
func (e *Engine) Rubric() *rubric.Registry { return e.rubric }
