package workflow

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Spok95/bqs/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to status
		ok       bool
	}{
		{models.StatusNew, models.StatusHeadsAssigned, true},
		{models.StatusNew, models.StatusUnderAssessment, true},
		{models.StatusNew, models.StatusApproved, false},
		{models.StatusUnderAssessment, models.StatusSASubmitted, true},
		{models.StatusUnderAssessment, models.StatusPendingGHApproval, true},
		{models.StatusReadyForReview, models.StatusPendingFinalApproval, true},
		{models.StatusPendingGHApproval, models.StatusApproved, true},
		{models.StatusPendingGHApproval, models.StatusPendingFinalApproval, false},
		{models.StatusPendingFinalApproval, models.StatusReadyForReview, false},
		{models.StatusApproved, models.StatusRejected, false},
		{models.StatusRejected, models.StatusApproved, false},
		{models.StatusApproved, models.StatusUnderAssessment, true},
		{models.StatusApproved, models.StatusApproved, true},
		// исторические значения
		{models.StatusOpen, models.StatusHeadsAssigned, true},
		{models.StatusUnderReview, models.StatusPendingFinalApproval, true},
		{models.StatusWon, models.StatusRejected, false},
		{"", models.StatusUnderAssessment, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestCheckTransition_Conflict(t *testing.T) {
	err := checkTransition(models.StatusRejected, models.StatusReadyForReview)
	if err == nil {
		t.Fatal("expected an error")
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("kind = %v, want conflict", KindOf(err))
	}
}

func TestCanonical(t *testing.T) {
	cases := map[status]status{
		"":                              models.StatusNew,
		models.StatusOpen:               models.StatusNew,
		models.StatusAssigned:           models.StatusHeadsAssigned,
		models.StatusInAssessment:       models.StatusUnderAssessment,
		models.StatusSubmittedForReview: models.StatusReadyForReview,
		models.StatusCompleted:          models.StatusApproved,
		models.StatusLost:               models.StatusRejected,
		models.StatusPendingGHApproval:  models.StatusPendingGHApproval,
	}
	for in, want := range cases {
		if got := canonical(in); got != want {
			t.Errorf("canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if KindOf(notFound("x")) != KindNotFound {
		t.Fatal("notFound kind")
	}
	if KindOf(invalid("x")) != KindValidation {
		t.Fatal("invalid kind")
	}
	if Message(conflict("opportunity is already %s", "APPROVED")) != "opportunity is already APPROVED" {
		t.Fatal("conflict message")
	}
	if storeErr("op", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
	typed := conflict("already")
	if storeErr("op", typed) != typed {
		t.Fatal("typed errors pass through")
	}

	fk := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	if err := storeErr("save workflow", fk); KindOf(err) != KindNotFound || Message(err) != "user not found" {
		t.Fatalf("fk violation = %v", err)
	}
	uniq := &pgconn.PgError{Code: "23505"}
	if KindOf(storeErr("create version", uniq)) != KindConflict {
		t.Fatal("unique violation must be a conflict")
	}
}
