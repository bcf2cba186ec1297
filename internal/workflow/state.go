package workflow

import "github.com/Spok95/bqs/internal/models"

type status = models.WorkflowStatus

// transitions: разрешённые переходы. Всё, чего здесь нет,: конфликт.
var transitions = map[status][]status{
	models.StatusNew: {
		models.StatusHeadsAssigned, models.StatusUnderAssessment,
	},
	models.StatusHeadsAssigned: {
		models.StatusUnderAssessment,
	},
	models.StatusUnderAssessment: {
		models.StatusSASubmitted, models.StatusSPSubmitted,
		models.StatusReadyForReview, models.StatusPendingGHApproval,
	},
	models.StatusSASubmitted: {
		models.StatusUnderAssessment, models.StatusSPSubmitted,
		models.StatusReadyForReview, models.StatusPendingGHApproval,
	},
	models.StatusSPSubmitted: {
		models.StatusUnderAssessment, models.StatusSASubmitted,
		models.StatusReadyForReview, models.StatusPendingGHApproval,
	},
	models.StatusReadyForReview: {
		models.StatusUnderAssessment, models.StatusSASubmitted, models.StatusSPSubmitted,
		models.StatusPendingGHApproval, models.StatusPendingFinalApproval,
		models.StatusApproved, models.StatusRejected,
	},
	models.StatusPendingGHApproval: {
		models.StatusUnderAssessment, models.StatusSASubmitted, models.StatusSPSubmitted,
		models.StatusReadyForReview, models.StatusApproved, models.StatusRejected,
	},
	models.StatusPendingFinalApproval: {
		models.StatusUnderAssessment, models.StatusApproved, models.StatusRejected,
	},
	// из терминальных: только новая версия
	models.StatusApproved: {models.StatusUnderAssessment},
	models.StatusRejected: {models.StatusUnderAssessment},
}

// canonical сводит исторические значения статуса к узлам графа.
func canonical(s status) status {
	switch s {
	case "", models.StatusOpen:
		return models.StatusNew
	case models.StatusAssigned:
		return models.StatusHeadsAssigned
	case models.StatusInAssessment:
		return models.StatusUnderAssessment
	case models.StatusUnderReview, models.StatusSubmitted, models.StatusSubmittedForReview:
		return models.StatusReadyForReview
	case models.StatusAccepted, models.StatusCompleted, models.StatusWon:
		return models.StatusApproved
	case models.StatusLost:
		return models.StatusRejected
	}
	return s
}

// CanTransition: переход from → to допустим (самопереход всегда допустим).
func CanTransition(from, to status) bool {
	from, to = canonical(from), canonical(to)
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to status) error {
	if !CanTransition(from, to) {
		return conflict("opportunity cannot move from %s to %s", canonical(from), to)
	}
	return nil
}

// inApprovalPhase: решение уже у согласующих; правки исполнителей статус не двигают.
func inApprovalPhase(s status) bool {
	s = canonical(s)
	return s == models.StatusPendingGHApproval || s == models.StatusPendingFinalApproval
}

// inExecutorPhase: статусы, которые пересчитываются от флагов отправки.
func inExecutorPhase(s status) bool {
	switch canonical(s) {
	case models.StatusNew, models.StatusHeadsAssigned, models.StatusUnderAssessment,
		models.StatusSASubmitted, models.StatusSPSubmitted, models.StatusReadyForReview:
		return true
	}
	return false
}

func awaitingDecision(s status) bool {
	switch canonical(s) {
	case models.StatusReadyForReview, models.StatusPendingGHApproval, models.StatusPendingFinalApproval:
		return true
	}
	return false
}
