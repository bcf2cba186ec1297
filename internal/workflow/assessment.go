package workflow

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
)

type SectionInput struct {
	SectionCode string   `json:"section_code"`
	Score       float64  `json:"score"`
	Notes       string   `json:"notes"`
	Reasons     []string `json:"selected_reasons"`
}

// ScoringInput: полезная нагрузка черновика и отправки.
// nil в текстовых полях: оставить прежнее значение.
type ScoringInput struct {
	OpportunityID  string         `json:"-"`
	CallerID       string         `json:"-"`
	Sections       []SectionInput `json:"sections"`
	Confidence     *string        `json:"confidence_level,omitempty"`
	Recommendation *string        `json:"recommendation,omitempty"`
	Summary        *string        `json:"summary_comment,omitempty"`
	Attachment     *string        `json:"attachment_name,omitempty"`
}

// ScoreResult: версия после записи и счёт, посчитанный по её секциям.
type ScoreResult struct {
	Opportunity models.Opportunity       `json:"-"`
	Version     models.AssessmentVersion `json:"version"`
	Overall     int                      `json:"overall_score"`
	Status      models.WorkflowStatus    `json:"workflow_status"`
	FastTrack   bool                     `json:"fast_track"`
}

// normalizeSections: канонические коды, проверка шага оценки.
// Неизвестные коды молча отбрасываются.
func (e *Engine) normalizeSections(in []SectionInput) ([]models.SectionValue, error) {
	out := make([]models.SectionValue, 0, len(in))
	for _, s := range in {
		code, ok := e.rubric.Canonical(s.SectionCode)
		if !ok {
			continue
		}
		if !rubric.ValidScore(s.Score) {
			return nil, invalid("score %v for section %s is outside 0..5 in steps of 0.5", s.Score, code)
		}
		reasons := s.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		out = append(out, models.SectionValue{SectionCode: code, Score: s.Score, Notes: s.Notes, Reasons: reasons})
	}
	return out, nil
}

func (in ScoringInput) applyNarrative(v *models.AssessmentVersion) {
	if in.Confidence != nil {
		v.Confidence = *in.Confidence
	}
	if in.Recommendation != nil {
		v.Recommendation = *in.Recommendation
	}
	if in.Summary != nil {
		v.Summary = *in.Summary
	}
	if in.Attachment != nil {
		v.Attachment = *in.Attachment
	}
}

// writeDraft: общая часть черновика и отправки. Вызывается под блокировкой o.
func (e *Engine) writeDraft(ctx context.Context, tx *sql.Tx, o *models.Opportunity, in ScoringInput, values []models.SectionValue) (*models.AssessmentVersion, error) {
	isSA := o.Slots.SA != "" && o.Slots.SA == in.CallerID
	isSP := o.Slots.SP != "" && o.Slots.SP == in.CallerID
	if !isSA && !isSP {
		return nil, invalid("user %s holds neither the SA nor the SP slot", in.CallerID)
	}

	latest, err := db.LockLatestVersion(ctx, tx, o.ID)
	if err != nil {
		return nil, storeErr("lock latest version", err)
	}
	versionNo, reuse := draftSlot(latest)

	var v *models.AssessmentVersion
	if reuse {
		v = latest
		if isSA {
			v.SASubmitted = false
		}
		if isSP {
			v.SPSubmitted = false
		}
		if v.Status == models.VersionSubmitted {
			v.Status = models.VersionUnderAssessment
		}
		in.applyNarrative(v)
		if err := db.UpdateVersion(ctx, tx, v); err != nil {
			return nil, storeErr("update version", err)
		}
	} else {
		v = &models.AssessmentVersion{
			OpportunityID: o.ID,
			VersionNo:     versionNo,
			Status:        models.VersionUnderAssessment,
			CreatedBy:     in.CallerID,
			CreatedAt:     e.now(),
		}
		in.applyNarrative(v)
		if err := db.CreateVersion(ctx, tx, v); err != nil {
			return nil, storeErr("create version", err)
		}
	}

	for _, sv := range values {
		if err := db.UpsertSection(ctx, tx, v.ID, sv); err != nil {
			return nil, storeErr("upsert section", err)
		}
	}
	if v.Sections, err = db.ListSections(ctx, tx, v.ID); err != nil {
		return nil, storeErr("list sections", err)
	}
	return v, nil
}

// SaveDraft пишет значения секций в текущую версию раунда.
func (e *Engine) SaveDraft(ctx context.Context, in ScoringInput) (*ScoreResult, error) {
	values, err := e.normalizeSections(in.Sections)
	if err != nil {
		return nil, err
	}

	var (
		res  ScoreResult
		from status
	)
	err = db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		o, err := e.lock(ctx, tx, in.OpportunityID)
		if err != nil {
			return err
		}
		from = o.Status
		if canonical(o.Status).IsTerminal() {
			return conflict("opportunity is already %s, start a new version first", canonical(o.Status))
		}

		v, err := e.writeDraft(ctx, tx, o, in, values)
		if err != nil {
			return err
		}
		if inExecutorPhase(o.Status) {
			o.Status = canonical(o.Status)
			if o.Status == models.StatusNew || o.Status == models.StatusHeadsAssigned {
				o.Status = models.StatusUnderAssessment
			}
			if err := e.moveTo(o, executorStatus(v)); err != nil {
				return err
			}
			if err := db.SaveWorkflow(ctx, tx, o); err != nil {
				return storeErr("save opportunity", err)
			}
		}
		res = ScoreResult{Opportunity: *o, Version: *v, Overall: e.rubric.Overall(v.Sections), Status: o.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.observeTransition(&res.Opportunity, from, "save_draft")
	return &res, nil
}

// Submit: черновик плюс отметка отправки вызывающего и пересчёт статуса.
func (e *Engine) Submit(ctx context.Context, in ScoringInput) (*ScoreResult, error) {
	values, err := e.normalizeSections(in.Sections)
	if err != nil {
		return nil, err
	}

	var (
		res  ScoreResult
		from status
	)
	err = db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		o, err := e.lock(ctx, tx, in.OpportunityID)
		if err != nil {
			return err
		}
		from = o.Status
		if canonical(o.Status).IsTerminal() {
			return conflict("opportunity is already %s", canonical(o.Status))
		}

		v, err := e.writeDraft(ctx, tx, o, in, values)
		if err != nil {
			return err
		}
		if v.Status.IsTerminal() {
			return conflict("version %d is already %s", v.VersionNo, v.Status)
		}

		overall := e.rubric.Overall(v.Sections)
		v.OverallScore = &overall
		if o.Slots.SA == in.CallerID {
			v.SASubmitted = true
		}
		if o.Slots.SP == in.CallerID {
			v.SPSubmitted = true
		}

		out := decideSubmit(o.Slots, v, overall)
		v.Status = out.Version
		if out.Complete {
			now := e.now()
			v.SubmittedAt = &now
		}
		if err := db.UpdateVersion(ctx, tx, v); err != nil {
			return storeErr("update version", err)
		}

		switch canonical(o.Status) {
		case models.StatusNew, models.StatusHeadsAssigned:
			o.Status = models.StatusUnderAssessment
		}
		if err := e.moveTo(o, out.Status); err != nil {
			return err
		}
		applyFastTrack(o, out.FastTrack)
		if err := db.SaveWorkflow(ctx, tx, o); err != nil {
			return storeErr("save opportunity", err)
		}
		res = ScoreResult{Opportunity: *o, Version: *v, Overall: overall, Status: o.Status, FastTrack: out.FastTrack}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.observeTransition(&res.Opportunity, from, "submit")
	e.log.Info("assessment submitted",
		zap.String("opportunity_id", res.Opportunity.ID),
		zap.Int("version", res.Version.VersionNo),
		zap.Int("overall", res.Overall),
		zap.String("by", in.CallerID),
	)
	if res.FastTrack && from != res.Opportunity.Status {
		o := res.Opportunity
		e.notifier.FastTrack(ctx, o, res.Overall, e.users(o.Slots.PH, o.Slots.SH))
	}
	return &res, nil
}

// NewVersion клонирует последнюю версию в V+1 (DRAFT) и открывает новый раунд.
func (e *Engine) NewVersion(ctx context.Context, opportunityID, callerID string) (int, error) {
	var (
		o    *models.Opportunity
		from status
		next int
	)
	err := db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		var err error
		if o, err = e.lock(ctx, tx, opportunityID); err != nil {
			return err
		}
		from = o.Status

		latest, err := db.LockLatestVersion(ctx, tx, o.ID)
		if err != nil {
			return storeErr("lock latest version", err)
		}
		if latest == nil {
			return conflict("opportunity %s has no version to copy", o.ID)
		}

		v := &models.AssessmentVersion{
			OpportunityID:  o.ID,
			VersionNo:      latest.VersionNo + 1,
			Status:         models.VersionDraft,
			Confidence:     latest.Confidence,
			Recommendation: latest.Recommendation,
			Summary:        latest.Summary,
			Attachment:     latest.Attachment,
			CreatedBy:      callerID,
			CreatedAt:      e.now(),
		}
		if err := db.CreateVersion(ctx, tx, v); err != nil {
			return storeErr("create version", err)
		}
		if err := db.CopySections(ctx, tx, latest.ID, v.ID); err != nil {
			return storeErr("copy sections", err)
		}
		next = v.VersionNo

		if err := e.moveTo(o, models.StatusUnderAssessment); err != nil {
			return err
		}
		o.Approvals = models.PendingApprovals()
		o.FastTracked = false
		return storeErr("save opportunity", db.SaveWorkflow(ctx, tx, o))
	})
	if err != nil {
		return 0, err
	}
	e.observeTransition(o, from, "new_version")
	return next, nil
}
