package listing

import (
	"strings"

	"github.com/Spok95/bqs/internal/models"
)

type Tab string

const (
	TabAll               Tab = "all"
	TabReview            Tab = "review"
	TabPendingReview     Tab = "pending-review"
	TabSubmitted         Tab = "submitted"
	TabCompleted         Tab = "completed"
	TabActionRequired    Tab = "action-required"
	TabInProgress        Tab = "in-progress"
	TabUnassigned        Tab = "unassigned"
	TabMissingPH         Tab = "missing-ph"
	TabMissingSH         Tab = "missing-sh"
	TabPartiallyAssigned Tab = "partially-assigned"
	TabFullyAssigned     Tab = "fully-assigned"
)

type statusSet map[models.WorkflowStatus]bool

func setOf(xs ...models.WorkflowStatus) statusSet {
	s := make(statusSet, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

var (
	reviewSet = setOf(
		models.StatusReadyForReview, models.StatusUnderReview,
		models.StatusSASubmitted, models.StatusSPSubmitted,
		models.StatusPendingGHApproval, models.StatusPendingFinalApproval,
		models.StatusSubmitted, models.StatusSubmittedForReview,
	)
	completedSet = setOf(
		models.StatusApproved, models.StatusRejected,
		models.StatusAccepted, models.StatusCompleted, models.StatusWon, models.StatusLost,
	)
	// для исполнителей «сделано» наступает с их отправкой
	executorDoneSet = setOf(
		models.StatusSASubmitted, models.StatusSPSubmitted,
		models.StatusReadyForReview, models.StatusUnderReview,
		models.StatusPendingGHApproval, models.StatusSubmitted,
	)
	inAssessmentSet = setOf(models.StatusUnderAssessment, models.StatusInAssessment)
)

// tabsFor: вкладки, которые видит роль (и по которым считаются счётчики).
func tabsFor(role models.Role) []Tab {
	tabs := []Tab{TabAll, TabActionRequired, TabInProgress, TabReview, TabCompleted}
	if role == models.RoleGH {
		tabs = append(tabs, TabUnassigned, TabMissingPH, TabMissingSH, TabPartiallyAssigned, TabFullyAssigned)
	}
	return tabs
}

// ParseTabs разбирает «a,b,c». Пусто: all; неизвестное имя: ошибка.
// Старые имена pending-review и submitted сводятся к review, чтобы у каждой
// вкладки запроса был счётчик.
func ParseTabs(raw string, role models.Role) ([]Tab, error) {
	var out []Tab
	seen := make(map[Tab]bool)
	for _, part := range strings.Split(raw, ",") {
		t := Tab(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if t == TabPendingReview || t == TabSubmitted {
			t = TabReview
		}
		if !known(t, role) {
			return nil, invalidf("unknown tab %q", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = []Tab{TabAll}
	}
	return out, nil
}

func known(t Tab, role models.Role) bool {
	for _, k := range tabsFor(role) {
		if k == t {
			return true
		}
	}
	return false
}

// row: то, что нужно предикатам вкладок.
type row struct {
	Status    models.WorkflowStatus // уже выведенный статус
	Slots     models.Slots
	Approvals models.Approvals
}

func (r row) open() bool {
	return !completedSet[r.Status] && !reviewSet[r.Status]
}

// Match: попадает ли строка во вкладку для роли.
func Match(t Tab, role models.Role, r row) bool {
	switch t {
	case TabAll:
		return true
	case TabReview:
		return reviewSet[r.Status]
	case TabCompleted:
		return completed(role, r)
	case TabActionRequired:
		return actionRequired(role, r)
	case TabInProgress:
		return inProgress(role, r)
	}
	if role != models.RoleGH || !r.open() {
		return false
	}
	ph, sh := r.Slots.PH != "", r.Slots.SH != ""
	switch t {
	case TabUnassigned:
		return !ph && !sh
	case TabMissingPH:
		return !ph
	case TabMissingSH:
		return !sh
	case TabPartiallyAssigned:
		return ph != sh
	case TabFullyAssigned:
		return ph && sh
	}
	return false
}

// MatchAny: объединение вкладок.
func MatchAny(tabs []Tab, role models.Role, r row) bool {
	for _, t := range tabs {
		if Match(t, role, r) {
			return true
		}
	}
	return false
}

func completed(role models.Role, r row) bool {
	if completedSet[r.Status] {
		return true
	}
	if role.IsApprover() && r.Approvals.Get(role).Decided() {
		return true
	}
	return role.IsExecutor() && executorDoneSet[r.Status]
}

// executorSlot: слот исполнителя, за которого отвечает руководитель.
func executorSlot(role models.Role, s models.Slots) string {
	if role == models.RolePH {
		return s.SA
	}
	return s.SP
}

func actionRequired(role models.Role, r row) bool {
	switch role {
	case models.RolePH, models.RoleSH:
		if r.open() && executorSlot(role, r.Slots) == "" {
			return true
		}
		// Ветка «ревью» сужена до PENDING_FINAL_APPROVAL с PENDING у этой роли:
		// READY_FOR_REVIEW живёт только во вкладке review, иначе одна заявка
		// попадает сразу в action-required и review и счётчик руководителя завышен.
		return r.Status == models.StatusPendingFinalApproval && r.Approvals.Get(role) == models.ApprovalPending
	case models.RoleGH:
		return r.open() && (r.Slots.PH == "" || r.Slots.SH == "")
	case models.RoleSA, models.RoleSP:
		return r.open() && !inAssessmentSet[r.Status]
	}
	return false
}

func inProgress(role models.Role, r row) bool {
	switch role {
	case models.RolePH, models.RoleSH:
		return r.open() && executorSlot(role, r.Slots) != ""
	case models.RoleGH:
		return r.open() && (r.Slots.PH != "" || r.Slots.SH != "")
	case models.RoleSA, models.RoleSP:
		return inAssessmentSet[r.Status]
	}
	return false
}
