package workflow

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// Assign ставит пользователя в слот роли (PH, SH, SA, SP), замещая прежнего.
func (e *Engine) Assign(ctx context.Context, opportunityID string, role models.Role, userID, callerID string) (*models.Opportunity, error) {
	if role == models.RoleGH || (!role.IsApprover() && !role.IsExecutor()) {
		return nil, invalid("role %q has no assignment slot", role)
	}
	if userID == "" {
		return nil, invalid("user id is required")
	}
	assignee, ok := e.dir.Get(userID)
	if !ok {
		return nil, notFound("user %s not found", userID)
	}
	if !assignee.IsActive || !assignee.HasRole(role) {
		return nil, invalid("user %s does not hold role %s", userID, role)
	}

	var (
		o    *models.Opportunity
		from status
	)
	err := db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		var err error
		if o, err = e.lock(ctx, tx, opportunityID); err != nil {
			return err
		}
		from = o.Status
		o.Slots.Set(role, userID)

		if err := db.AppendAssignmentLog(ctx, tx, models.AssignmentLogEntry{
			OpportunityID: o.ID, Role: role, UserID: userID, AssignedBy: callerID, AssignedAt: e.now(),
		}); err != nil {
			return storeErr("assignment log", err)
		}

		if role.IsExecutor() {
			if err := e.reopenForExecutor(ctx, tx, o, role); err != nil {
				return err
			}
		} else if canonical(o.Status) == models.StatusNew {
			if err := e.moveTo(o, models.StatusHeadsAssigned); err != nil {
				return err
			}
		}
		return storeErr("save opportunity", db.SaveWorkflow(ctx, tx, o))
	})
	if err != nil {
		return nil, err
	}

	e.observeTransition(o, from, "assign")
	e.log.Info("slot assigned",
		zap.String("opportunity_id", o.ID),
		zap.String("role", string(role)),
		zap.String("user_id", userID),
		zap.String("by", callerID),
	)
	e.notifier.Assigned(ctx, *o, role, assignee)
	return o, nil
}

// reopenForExecutor: новый SA/SP обязан отправить заново: снимаем его флаг,
// SUBMITTED откатываем в UNDER_ASSESSMENT. Терминальную версию не трогаем.
func (e *Engine) reopenForExecutor(ctx context.Context, tx *sql.Tx, o *models.Opportunity, role models.Role) error {
	v, err := db.LockLatestVersion(ctx, tx, o.ID)
	if err != nil {
		return storeErr("lock latest version", err)
	}
	if v != nil && !v.Status.IsTerminal() {
		if role == models.RoleSA {
			v.SASubmitted = false
		} else {
			v.SPSubmitted = false
		}
		if v.Status == models.VersionSubmitted {
			v.Status = models.VersionUnderAssessment
		}
		if err := db.UpdateVersion(ctx, tx, v); err != nil {
			return storeErr("update version", err)
		}
	}

	// закрытые и уже ушедшие на согласование сохраняют статус
	if canonical(o.Status).IsTerminal() || inApprovalPhase(o.Status) {
		return nil
	}
	return e.moveTo(o, models.StatusUnderAssessment)
}

// StartAssessment переводит возможность в UNDER_ASSESSMENT.
func (e *Engine) StartAssessment(ctx context.Context, opportunityID string) (*models.Opportunity, error) {
	var (
		o    *models.Opportunity
		from status
	)
	err := db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		var err error
		if o, err = e.lock(ctx, tx, opportunityID); err != nil {
			return err
		}
		from = o.Status
		switch canonical(o.Status) {
		case models.StatusNew, models.StatusHeadsAssigned, models.StatusUnderAssessment:
		default:
			return conflict("assessment cannot be started from status %s", canonical(o.Status))
		}
		o.Status = models.StatusUnderAssessment
		return storeErr("save opportunity", db.SaveWorkflow(ctx, tx, o))
	})
	if err != nil {
		return nil, err
	}
	e.observeTransition(o, from, "start")
	return o, nil
}
