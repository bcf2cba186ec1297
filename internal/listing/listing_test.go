package listing

import (
	"fmt"
	"math"
	"testing"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

func listingRow(id string, st models.WorkflowStatus, slots models.Slots, a models.Approvals) db.ListingRow {
	return db.ListingRow{Opportunity: models.Opportunity{
		ID: id, Status: st, Value: 100, IsActive: true, Slots: slots, Approvals: a,
	}}
}

// десять возможностей у PH p1 в разных состояниях
func phPortfolio() []db.ListingRow {
	pending := models.PendingApprovals()
	approved := models.Approvals{GH: models.ApprovalApproved, PH: models.ApprovalApproved, SH: models.ApprovalApproved}
	var rows []db.ListingRow
	add := func(n int, st models.WorkflowStatus, slots models.Slots, a models.Approvals) {
		for i := 0; i < n; i++ {
			rows = append(rows, listingRow(fmt.Sprintf("%s-%d", st, i), st, slots, a))
		}
	}
	add(2, models.StatusApproved, models.Slots{PH: "p1", SA: "a"}, approved)
	add(1, models.StatusReadyForReview, models.Slots{PH: "p1", SA: "a"}, pending)
	add(3, models.StatusUnderAssessment, models.Slots{PH: "p1", SA: "a"}, pending)
	add(4, models.StatusHeadsAssigned, models.Slots{PH: "p1"}, pending)
	return rows
}

func TestSummarize_PracticeHeadCounts(t *testing.T) {
	res := Summarize(phPortfolio(), models.RolePH, []Tab{TabAll})
	want := map[Tab]int{
		TabAll: 10, TabCompleted: 2, TabReview: 1, TabActionRequired: 4, TabInProgress: 3,
	}
	for tab, n := range want {
		if res.Counts[tab] != n {
			t.Errorf("count[%s] = %d, want %d", tab, res.Counts[tab], n)
		}
	}
	if res.TotalCount != 10 || res.TotalValue != 1000 {
		t.Fatalf("total = %d, value = %v", res.TotalCount, res.TotalValue)
	}
	if _, ok := res.Counts[TabUnassigned]; ok {
		t.Fatal("GH-only tab counted for PH")
	}
}

func TestSummarize_CountMatchesSingleTab(t *testing.T) {
	rows := phPortfolio()
	rows = append(rows,
		listingRow("final", models.StatusPendingFinalApproval, models.Slots{PH: "p1", SA: "a"},
			models.Approvals{GH: models.ApprovalApproved, PH: models.ApprovalPending, SH: models.ApprovalApproved}),
		listingRow("legacy", models.StatusOpen, models.Slots{}, models.PendingApprovals()),
	)
	for _, role := range models.AllRoles {
		counts := Summarize(rows, role, []Tab{TabAll}).Counts
		for tab, n := range counts {
			if got := Summarize(rows, role, []Tab{tab}).TotalCount; got != n {
				t.Errorf("%s/%s: count %d, items %d", role, tab, n, got)
			}
		}
		for _, raw := range []string{"pending-review", "submitted"} {
			tabs, err := ParseTabs(raw, role)
			if err != nil {
				t.Fatal(err)
			}
			n, ok := counts[tabs[0]]
			if got := Summarize(rows, role, tabs).TotalCount; !ok || got != n {
				t.Errorf("%s/%s: count %d (%v), items %d", role, raw, n, ok, got)
			}
		}
	}
}

func TestSummarize_TabUnion(t *testing.T) {
	res := Summarize(phPortfolio(), models.RolePH, []Tab{TabCompleted, TabReview})
	if res.TotalCount != 3 {
		t.Fatalf("completed+review = %d", res.TotalCount)
	}
}

func TestMatch_Roles(t *testing.T) {
	pending := models.PendingApprovals()
	cases := []struct {
		name string
		tab  Tab
		role models.Role
		r    row
		want bool
	}{
		{"gh unassigned", TabUnassigned, models.RoleGH, row{Status: models.StatusNew}, true},
		{"gh partially", TabPartiallyAssigned, models.RoleGH, row{Status: models.StatusHeadsAssigned, Slots: models.Slots{PH: "p"}}, true},
		{"gh fully", TabFullyAssigned, models.RoleGH, row{Status: models.StatusUnderAssessment, Slots: models.Slots{PH: "p", SH: "s"}}, true},
		{"gh fully excludes review", TabFullyAssigned, models.RoleGH, row{Status: models.StatusReadyForReview, Slots: models.Slots{PH: "p", SH: "s"}}, false},
		{"gh missing sh action", TabActionRequired, models.RoleGH, row{Status: models.StatusHeadsAssigned, Slots: models.Slots{PH: "p"}}, true},
		{"gh in progress", TabInProgress, models.RoleGH, row{Status: models.StatusHeadsAssigned, Slots: models.Slots{SH: "s"}}, true},
		{"ph gh-only tab", TabUnassigned, models.RolePH, row{Status: models.StatusNew}, false},
		{"sh needs sp", TabActionRequired, models.RoleSH, row{Status: models.StatusUnderAssessment, Slots: models.Slots{SA: "a"}, Approvals: pending}, true},
		{"sh chased in final", TabActionRequired, models.RoleSH, row{Status: models.StatusPendingFinalApproval, Approvals: pending}, true},
		{"ph ready for review stays in review", TabActionRequired, models.RolePH, row{Status: models.StatusReadyForReview, Slots: models.Slots{SA: "a"}, Approvals: pending}, false},
		{"ph decided in final", TabActionRequired, models.RolePH, row{Status: models.StatusPendingFinalApproval, Slots: models.Slots{SA: "a"}, Approvals: models.Approvals{PH: models.ApprovalApproved}}, false},
		{"sh notified is completed", TabCompleted, models.RoleSH, row{Status: models.StatusPendingGHApproval, Approvals: models.Approvals{SH: models.ApprovalNotified}}, true},
		{"sa submitted is completed", TabCompleted, models.RoleSA, row{Status: models.StatusSASubmitted}, true},
		{"sa final approval not completed", TabCompleted, models.RoleSA, row{Status: models.StatusPendingFinalApproval}, false},
		{"sa in progress legacy", TabInProgress, models.RoleSA, row{Status: models.StatusInAssessment}, true},
		{"sp action on new", TabActionRequired, models.RoleSP, row{Status: models.StatusHeadsAssigned}, true},
		{"sp no action in assessment", TabActionRequired, models.RoleSP, row{Status: models.StatusUnderAssessment}, false},
		{"legacy review status", TabReview, models.RoleGH, row{Status: models.StatusSubmittedForReview}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Match(c.tab, c.role, c.r); got != c.want {
				t.Fatalf("Match(%s, %s) = %v, want %v", c.tab, c.role, got, c.want)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		r    db.ListingRow
		want models.WorkflowStatus
	}{
		{"persisted wins", db.ListingRow{Opportunity: models.Opportunity{Status: models.StatusSASubmitted}}, models.StatusSASubmitted},
		{"open submitted", db.ListingRow{Opportunity: models.Opportunity{Status: models.StatusOpen}, VersionStatus: models.VersionSubmitted}, models.StatusSubmitted},
		{"empty rejected", db.ListingRow{VersionStatus: models.VersionRejected}, models.StatusRejected},
		{"positive score", db.ListingRow{VersionStatus: models.VersionDraft, HasPositiveScore: true}, models.StatusUnderAssessment},
		{"slot filled", db.ListingRow{Opportunity: models.Opportunity{Slots: models.Slots{SH: "s"}}}, models.StatusAssigned},
		{"nothing", db.ListingRow{}, models.StatusNew},
	}
	for _, c := range cases {
		if got := DeriveStatus(c.r); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := make([]Item, 7)
	if got := len(paginate(items, 1, 3)); got != 3 {
		t.Fatalf("page 1 = %d", got)
	}
	if got := len(paginate(items, 3, 3)); got != 1 {
		t.Fatalf("page 3 = %d", got)
	}
	if got := paginate(items, 4, 3); len(got) != 0 || got == nil {
		t.Fatalf("page 4 = %v", got)
	}
	if got := paginate(items[:3], math.MaxInt, MaxLimit); len(got) != 0 || got == nil {
		t.Fatalf("huge page = %v", got)
	}
	if got := paginate(items, math.MaxInt/2, 3); len(got) != 0 {
		t.Fatalf("overflowing offset = %v", got)
	}
}
