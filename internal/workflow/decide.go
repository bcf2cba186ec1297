package workflow

import (
	"fmt"
	"strings"

	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
)

// draftSlot: какой номер версии правим. Терминальная версия не трогается:
// следующая правка идёт в V+1. Для терминальной заявки SaveDraft отвечает
// конфликтом раньше, так что сюда с терминальной версией приходят только
// старые строки, где статус заявки сброшен мимо движка.
func draftSlot(latest *models.AssessmentVersion) (versionNo int, reuse bool) {
	if latest == nil {
		return 1, false
	}
	if latest.Status.IsTerminal() {
		return latest.VersionNo + 1, false
	}
	return latest.VersionNo, true
}

// executorStatus: статус фазы исполнителей по флагам отправки версии.
func executorStatus(v *models.AssessmentVersion) status {
	switch {
	case v.SASubmitted && v.SPSubmitted:
		return models.StatusReadyForReview
	case v.SASubmitted:
		return models.StatusSASubmitted
	case v.SPSubmitted:
		return models.StatusSPSubmitted
	}
	return models.StatusUnderAssessment
}

type submitOutcome struct {
	Version   models.VersionStatus
	Status    status
	Complete  bool // раунд закрыт: все назначенные исполнители отправили
	FastTrack bool
}

// decideSubmit: куда ведёт отправка. Флаги вызывающего уже выставлены в v.
func decideSubmit(slots models.Slots, v *models.AssessmentVersion, overall int) submitOutcome {
	saDone := slots.SA == "" || v.SASubmitted
	spDone := slots.SP == "" || v.SPSubmitted
	inBand := rubric.InFastTrackBand(overall)

	out := submitOutcome{FastTrack: inBand}
	if saDone && spDone && (v.SASubmitted || v.SPSubmitted) {
		out.Complete = true
		out.Version = models.VersionSubmitted
		out.Status = models.StatusReadyForReview
	} else {
		out.Version = models.VersionUnderAssessment
		if v.SASubmitted {
			out.Status = models.StatusSASubmitted
		} else {
			out.Status = models.StatusSPSubmitted
		}
	}
	if inBand {
		// fast-track перекрывает и частичную отправку
		out.Status = models.StatusPendingGHApproval
	}
	return out
}

// applyFastTrack выставляет согласования под исход отправки.
// В полосе: PH/SH, которые ещё ждут, получают NOTIFIED.
// Вне полосы: прежние NOTIFIED возвращаются в PENDING, их снова ждут.
func applyFastTrack(o *models.Opportunity, fastTrack bool) {
	if fastTrack {
		o.FastTracked = true
		for _, r := range []models.Role{models.RolePH, models.RoleSH} {
			if o.Approvals.Get(r) == models.ApprovalPending {
				o.Approvals.Set(r, models.ApprovalNotified)
			}
		}
		return
	}
	o.FastTracked = false
	for _, r := range []models.Role{models.RolePH, models.RoleSH} {
		if o.Approvals.Get(r) == models.ApprovalNotified {
			o.Approvals.Set(r, models.ApprovalPending)
		}
	}
}

type approvalOutcome struct {
	Status  status
	Version models.VersionStatus // пусто: статус версии не меняется
	Noop    bool                 // повтор решения по закрытой возможности
}

// decideApproval: агрегирование решений GH/PH/SH. Меняет o.Approvals.
func decideApproval(o *models.Opportunity, role models.Role, decision models.ApprovalState) (approvalOutcome, error) {
	prev := canonical(o.Status)

	if prev.IsTerminal() {
		if o.Approvals.Get(role) == decision {
			return approvalOutcome{Status: prev, Noop: true}, nil
		}
		return approvalOutcome{}, conflict("opportunity is already %s", prev)
	}
	if !awaitingDecision(prev) {
		return approvalOutcome{}, conflict("opportunity is not awaiting approval (status %s)", prev)
	}

	o.Approvals.Set(role, decision)

	switch {
	case decision == models.ApprovalRejected:
		return approvalOutcome{Status: models.StatusRejected, Version: models.VersionRejected}, nil
	case prev == models.StatusPendingGHApproval && role == models.RoleGH:
		return approvalOutcome{Status: models.StatusApproved, Version: models.VersionApproved}, nil
	case prev == models.StatusPendingGHApproval:
		// PH/SH в fast-track только фиксируют мнение; решает GH
		return approvalOutcome{Status: prev}, nil
	case o.Approvals.AllApproved():
		return approvalOutcome{Status: models.StatusApproved, Version: models.VersionApproved}, nil
	}
	return approvalOutcome{Status: models.StatusPendingFinalApproval}, nil
}

// auditLine: строка журнала в summary последней версии.
func auditLine(role models.Role, decision models.ApprovalState, comment string) string {
	return strings.TrimRight(fmt.Sprintf("[%s %s]: %s", role, decision, strings.TrimSpace(comment)), " ")
}

func appendAudit(summary, line string) string {
	if strings.TrimSpace(summary) == "" {
		return line
	}
	return strings.TrimRight(summary, "\n") + "\n" + line
}
