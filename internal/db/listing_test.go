package db

import (
	"strings"
	"testing"
)

func TestBuildListingQuery_Scope(t *testing.T) {
	t.Run("gh_sees_all_active", func(t *testing.T) {
		q, args := buildListingQuery(ListingFilter{})
		if !strings.Contains(q, "WHERE TRUE AND o.is_active = TRUE\n") {
			t.Fatalf("ожидали только фильтр активности, запрос:\n%s", q)
		}
		if len(args) != 0 {
			t.Fatalf("лишние аргументы: %v", args)
		}
	})
	t.Run("scoped_role", func(t *testing.T) {
		q, args := buildListingQuery(ListingFilter{ScopeColumn: "assigned_ph", ScopeUserID: "p1"})
		if !strings.Contains(q, "o.assigned_ph = $1") || len(args) != 1 || args[0] != "p1" {
			t.Fatalf("нет фильтра по PH: %s %v", q, args)
		}
	})
	t.Run("scoped_role_without_caller_is_empty", func(t *testing.T) {
		q, _ := buildListingQuery(ListingFilter{ScopeColumn: "assigned_sa"})
		if !strings.Contains(q, "AND FALSE") {
			t.Fatalf("без вызывающего результат должен быть пустым: %s", q)
		}
	})
	t.Run("unknown_scope_column_is_empty", func(t *testing.T) {
		q, _ := buildListingQuery(ListingFilter{ScopeColumn: "o.id; DROP TABLE users", ScopeUserID: "x"})
		if !strings.Contains(q, "AND FALSE") || strings.Contains(q, "DROP") {
			t.Fatalf("неизвестная колонка области: %s", q)
		}
	})
}

func TestBuildListingQuery_Filters(t *testing.T) {
	lo, hi := 1000.0, 5000.0
	q, args := buildListingQuery(ListingFilter{
		Search:   "acme",
		In:       map[string][]string{"stage": {"Qualify", "Propose"}, "bogus": {"x"}},
		Contains: map[string]string{"customer": "corp"},
		ValueMin: &lo,
		ValueMax: &hi,
	})
	for _, want := range []string{
		"o.name ILIKE $1",
		"o.stage = ANY($2)",
		"o.customer ILIKE $3",
		"o.value >= $4",
		"o.value <= $5",
		"ORDER BY o.crm_updated_at DESC NULLS LAST",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("в запросе нет %q:\n%s", want, q)
		}
	}
	if strings.Contains(q, "bogus") {
		t.Fatal("неизвестные колонки должны игнорироваться")
	}
	if len(args) != 5 || args[0] != "%acme%" || args[2] != "%corp%" {
		t.Fatalf("аргументы: %#v", args)
	}
}

func TestBuildListingQuery_IncludeInactive(t *testing.T) {
	q, _ := buildListingQuery(ListingFilter{IncludeInactive: true, In: map[string][]string{"id": {"o1"}}})
	if strings.Contains(q, "is_active = TRUE") {
		t.Fatalf("карточка должна видеть скрытые: %s", q)
	}
	if !strings.Contains(q, "o.id = ANY($1)") {
		t.Fatalf("нет фильтра по id: %s", q)
	}
}
