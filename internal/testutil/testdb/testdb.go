//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
)

type DBHandle struct {
	DB     *sql.DB
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start поднимает postgres в контейнере, применяет миграции и сеет рубрику.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("bqs"),
		postgres.WithUsername("bqs"),
		postgres.WithPassword("bqs"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}
	database, err := sql.Open("postgres", uri)
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, database); err != nil {
		return fail(err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		return fail(err)
	}
	if err := db.SeedRubric(ctx, database, rubric.Default().Sections()); err != nil {
		return fail(err)
	}

	return &DBHandle{
		DB:     database,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

func waitReady(ctx context.Context, database *sql.DB) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := database.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}

// MustSeedUser заводит активного пользователя с ролями.
func MustSeedUser(t testing.TB, database *sql.DB, id, name string, roles ...models.Role) models.User {
	t.Helper()
	u := models.User{ID: id, Name: name, Email: id + "@example.com", IsActive: true, Roles: roles}
	if err := db.UpsertUser(context.Background(), database, u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

// MustSeedOpportunity: запись так, как её принесла бы интеграция с CRM.
func MustSeedOpportunity(t testing.TB, database *sql.DB, id string, value float64) {
	t.Helper()
	now := time.Now().UTC()
	rec := models.CRMRecord{
		ID:           id,
		Number:       "N-" + id,
		Name:         "Opportunity " + id,
		Customer:     "Customer " + id,
		Practice:     "Cloud",
		Geography:    "EMEA",
		Currency:     "USD",
		Value:        value,
		Stage:        "Qualify",
		CRMUpdatedAt: &now,
	}
	if err := db.UpsertOpportunity(context.Background(), database, rec, now); err != nil {
		t.Fatalf("seed opportunity %s: %v", id, err)
	}
}
