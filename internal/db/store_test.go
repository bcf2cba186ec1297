//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
	"github.com/Spok95/bqs/internal/testutil/testdb"
)

func TestSeedRubric_Idempotent(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	sections := rubric.Default().Sections()
	// Start уже сидировал рубрику, второй прогон не должен плодить строки
	if err := db.SeedRubric(ctx, h.DB, sections); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListRubricSections(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sections) {
		t.Fatalf("sections = %d, want %d", len(got), len(sections))
	}
	if got[0].Code != "STRAT" || got[0].Weight != 0.15 {
		t.Fatalf("first section = %+v", got[0])
	}
}

func TestUpsertOpportunity_KeepsWorkflowFields(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	testdb.MustSeedUser(t, h.DB, "alice", "Alice", models.RoleSA)
	testdb.MustSeedOpportunity(t, h.DB, "O1", 1000)

	o, err := db.GetOpportunity(ctx, h.DB, "O1")
	if err != nil || o == nil {
		t.Fatalf("get: %v %v", o, err)
	}
	if o.Status != models.StatusNew || !o.IsActive || o.Approvals != models.PendingApprovals() {
		t.Fatalf("fresh record = %+v", o)
	}

	o.Status = models.StatusUnderAssessment
	o.Slots.SA = "alice"
	if err := db.SaveWorkflow(ctx, h.DB, o); err != nil {
		t.Fatal(err)
	}

	inactive := false
	now := time.Now().UTC()
	rec := models.CRMRecord{ID: "O1", Name: "Renamed", Value: 2500, Currency: "EUR", CRMUpdatedAt: &now, Active: &inactive}
	if err := db.UpsertOpportunity(ctx, h.DB, rec, now); err != nil {
		t.Fatal(err)
	}

	o, err = db.GetOpportunity(ctx, h.DB, "O1")
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "Renamed" || o.Value != 2500 || o.IsActive {
		t.Fatalf("crm fields not applied: %+v", o)
	}
	if o.Status != models.StatusUnderAssessment || o.Slots.SA != "alice" {
		t.Fatalf("workflow fields touched: %+v", o)
	}

	counts, err := db.CountByStatus(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 0 {
		t.Fatalf("inactive record counted: %v", counts)
	}
}

func TestSaveWorkflow_UnknownAssignee(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	testdb.MustSeedOpportunity(t, h.DB, "O1", 10)
	o, err := db.GetOpportunity(ctx, h.DB, "O1")
	if err != nil || o == nil {
		t.Fatalf("get: %v %v", o, err)
	}
	o.Slots.SP = "ghost"
	if err := db.SaveWorkflow(ctx, h.DB, o); !db.IsForeignKeyViolation(err) {
		t.Fatalf("err = %v, want foreign key violation", err)
	}
}
