package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/bqs/internal/models"
)

const opportunityColumns = `
	o.id, o.number, o.name, o.customer, o.practice, o.geography, o.currency, o.value, o.stage,
	o.close_date, o.crm_updated_at, o.synced_at, o.is_active, o.status, o.fast_tracked,
	o.assigned_ph, o.assigned_sh, o.assigned_sa, o.assigned_sp,
	o.gh_approval, o.ph_approval, o.sh_approval`

// opportunityDest: приёмники для Scan; nullable-колонки через sql.Null*.
type opportunityDest struct {
	o                          models.Opportunity
	closeDate, crmAt, syncedAt sql.NullTime
	ph, sh, sa, sp             sql.NullString
	status                     sql.NullString
	gh, pha, sha               string
}

func (d *opportunityDest) targets() []any {
	return []any{
		&d.o.ID, &d.o.Number, &d.o.Name, &d.o.Customer, &d.o.Practice, &d.o.Geography, &d.o.Currency, &d.o.Value, &d.o.Stage,
		&d.closeDate, &d.crmAt, &d.syncedAt, &d.o.IsActive, &d.status, &d.o.FastTracked,
		&d.ph, &d.sh, &d.sa, &d.sp,
		&d.gh, &d.pha, &d.sha,
	}
}

func (d *opportunityDest) result() *models.Opportunity {
	o := d.o
	o.CloseDate = timePtr(d.closeDate)
	o.CRMUpdatedAt = timePtr(d.crmAt)
	o.SyncedAt = timePtr(d.syncedAt)
	o.Status = models.WorkflowStatus(d.status.String)
	o.Slots = models.Slots{PH: d.ph.String, SH: d.sh.String, SA: d.sa.String, SP: d.sp.String}
	o.Approvals = models.Approvals{
		GH: models.ApprovalState(d.gh),
		PH: models.ApprovalState(d.pha),
		SH: models.ApprovalState(d.sha),
	}
	return &o
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// GetOpportunity: nil, nil если записи нет.
func GetOpportunity(ctx context.Context, q Querier, id string) (*models.Opportunity, error) {
	return getOpportunity(ctx, q, id, "")
}

// LockOpportunity берёт строку под FOR UPDATE: все изменения workflow по одной
// возможности сериализуются на этой блокировке. Вызывать только внутри транзакции.
func LockOpportunity(ctx context.Context, tx *sql.Tx, id string) (*models.Opportunity, error) {
	return getOpportunity(ctx, tx, id, " FOR UPDATE")
}

func getOpportunity(ctx context.Context, q Querier, id, suffix string) (*models.Opportunity, error) {
	var d opportunityDest
	err := q.QueryRowContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities o WHERE o.id = $1`+suffix, id).
		Scan(d.targets()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.result(), nil
}

// SaveWorkflow пишет только то, чем владеет движок: статус, слоты и согласования.
func SaveWorkflow(ctx context.Context, q Querier, o *models.Opportunity) error {
	_, err := q.ExecContext(ctx, `
		UPDATE opportunities
		SET status = $2, fast_tracked = $3,
		    assigned_ph = $4, assigned_sh = $5, assigned_sa = $6, assigned_sp = $7,
		    gh_approval = $8, ph_approval = $9, sh_approval = $10,
		    updated_at = now()
		WHERE id = $1
	`, o.ID, string(o.Status), o.FastTracked,
		nullString(o.Slots.PH), nullString(o.Slots.SH), nullString(o.Slots.SA), nullString(o.Slots.SP),
		string(o.Approvals.GH), string(o.Approvals.PH), string(o.Approvals.SH))
	return err
}

// UpsertOpportunity: контракт интеграции с CRM. Поля workflow не трогает никогда.
// Active == nil оставляет флаг как есть; новые записи активны.
func UpsertOpportunity(ctx context.Context, q Querier, rec models.CRMRecord, syncedAt time.Time) error {
	var active sql.NullBool
	if rec.Active != nil {
		active = sql.NullBool{Bool: *rec.Active, Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO opportunities (id, number, name, customer, practice, geography, currency, value, stage,
		                           close_date, crm_updated_at, synced_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, TRUE))
		ON CONFLICT (id) DO UPDATE
		SET number = excluded.number, name = excluded.name, customer = excluded.customer,
		    practice = excluded.practice, geography = excluded.geography, currency = excluded.currency,
		    value = excluded.value, stage = excluded.stage, close_date = excluded.close_date,
		    crm_updated_at = excluded.crm_updated_at, synced_at = excluded.synced_at,
		    is_active = COALESCE($13, opportunities.is_active)
	`, rec.ID, rec.Number, rec.Name, rec.Customer, rec.Practice, rec.Geography, rec.Currency, rec.Value, rec.Stage,
		rec.CloseDate, rec.CRMUpdatedAt, syncedAt, active)
	return err
}

func AppendAssignmentLog(ctx context.Context, q Querier, e models.AssignmentLogEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assignment_log (opportunity_id, role, user_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.OpportunityID, string(e.Role), e.UserID, e.AssignedBy, e.AssignedAt)
	return err
}

// CountByStatus: активные возможности по статусу (для метрик).
func CountByStatus(ctx context.Context, q Querier) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(status, ''), 'NEW'), count(*)
		FROM opportunities
		WHERE is_active = TRUE
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
