package workflow

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/metrics"
	"github.com/Spok95/bqs/internal/models"
)

type ApprovalInput struct {
	OpportunityID string               `json:"-"`
	Role          models.Role          `json:"role"`
	Decision      models.ApprovalState `json:"decision"`
	Comment       string               `json:"comment"`
	CallerID      string               `json:"-"`
}

// Approve фиксирует решение GH/PH/SH и строку аудита в последней версии.
func (e *Engine) Approve(ctx context.Context, in ApprovalInput) (*models.Opportunity, error) {
	if !in.Role.IsApprover() {
		return nil, invalid("role %q cannot approve", in.Role)
	}
	if in.Decision != models.ApprovalApproved && in.Decision != models.ApprovalRejected {
		return nil, invalid("decision must be APPROVED or REJECTED")
	}
	if !e.dir.HasRole(in.CallerID, in.Role) {
		return nil, invalid("user %s does not hold role %s", in.CallerID, in.Role)
	}

	var (
		o    *models.Opportunity
		from status
		noop bool
	)
	err := db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		var err error
		if o, err = e.lock(ctx, tx, in.OpportunityID); err != nil {
			return err
		}
		from = o.Status

		v, err := db.LockLatestVersion(ctx, tx, o.ID)
		if err != nil {
			return storeErr("lock latest version", err)
		}
		if v == nil {
			return conflict("opportunity %s has no assessment to approve", o.ID)
		}

		out, err := decideApproval(o, in.Role, in.Decision)
		if err != nil {
			return err
		}
		noop = out.Noop
		if !out.Noop {
			if err := e.moveTo(o, out.Status); err != nil {
				return err
			}
		}

		v.Summary = appendAudit(v.Summary, auditLine(in.Role, in.Decision, in.Comment))
		if out.Version != "" && !v.Status.IsTerminal() {
			v.Status = out.Version
		}
		if err := db.UpdateVersion(ctx, tx, v); err != nil {
			return storeErr("update version", err)
		}
		return storeErr("save opportunity", db.SaveWorkflow(ctx, tx, o))
	})
	if err != nil {
		return nil, err
	}

	metrics.Approvals.WithLabelValues(string(in.Role), string(in.Decision)).Inc()
	e.observeTransition(o, from, "approve")
	e.log.Info("approval recorded",
		zap.String("opportunity_id", o.ID),
		zap.String("role", string(in.Role)),
		zap.String("decision", string(in.Decision)),
		zap.String("by", in.CallerID),
		zap.Bool("repeat", noop),
	)
	return o, nil
}
