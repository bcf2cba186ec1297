package workflow

import (
	"context"
	"time"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// VersionSummary: компактная сводка версии (история, «предыдущая версия»).
type VersionSummary struct {
	VersionNo      int                  `json:"version_number"`
	Status         models.VersionStatus `json:"status"`
	OverallScore   *int                 `json:"overall_score"`
	Recommendation string               `json:"recommendation"`
	Summary        string               `json:"summary"`
	CreatedBy      string               `json:"created_by"`
	CreatedAt      time.Time            `json:"created_at"`
	SubmittedAt    *time.Time           `json:"submitted_at,omitempty"`
}

func summarize(v models.AssessmentVersion) VersionSummary {
	return VersionSummary{
		VersionNo:      v.VersionNo,
		Status:         v.Status,
		OverallScore:   v.OverallScore,
		Recommendation: v.Recommendation,
		Summary:        v.Summary,
		CreatedBy:      v.CreatedBy,
		CreatedAt:      v.CreatedAt,
		SubmittedAt:    v.SubmittedAt,
	}
}

// LatestView: версия, развёрнутая по всем секциям рубрики.
type LatestView struct {
	OpportunityID string                   `json:"opportunity_id"`
	Exists        bool                     `json:"exists"`
	Version       models.AssessmentVersion `json:"version"`
	SASubmitted   bool                     `json:"sa_submitted"`
	SPSubmitted   bool                     `json:"sp_submitted"`
	Previous      *VersionSummary          `json:"previous,omitempty"`
	ViewerRoles   []models.Role            `json:"viewer_roles"`
}

// expand: по записи на каждую секцию рубрики; отсутствующие дают 0 и пустые поля.
func (e *Engine) expand(values []models.SectionValue) []models.SectionValue {
	byCode := make(map[string]models.SectionValue, len(values))
	for _, v := range values {
		byCode[v.SectionCode] = v
	}
	sections := e.rubric.Sections()
	out := make([]models.SectionValue, 0, len(sections))
	for _, s := range sections {
		v, ok := byCode[s.Code]
		if !ok {
			v = models.SectionValue{SectionCode: s.Code}
		}
		if v.Reasons == nil {
			v.Reasons = []string{}
		}
		out = append(out, v)
	}
	return out
}

// GetLatest: запрошенная версия (versionNo == 0: последняя).
func (e *Engine) GetLatest(ctx context.Context, opportunityID, viewerID string, versionNo int) (*LatestView, error) {
	o, err := db.GetOpportunity(ctx, e.db, opportunityID)
	if err != nil {
		return nil, storeErr("get opportunity", err)
	}
	if o == nil {
		return nil, notFound("opportunity %s not found", opportunityID)
	}

	var v *models.AssessmentVersion
	if versionNo > 0 {
		v, err = db.GetVersion(ctx, e.db, o.ID, versionNo)
		if err == nil && v == nil {
			return nil, notFound("version %d of opportunity %s not found", versionNo, o.ID)
		}
	} else {
		v, err = db.LatestVersion(ctx, e.db, o.ID)
	}
	if err != nil {
		return nil, storeErr("get version", err)
	}

	view := &LatestView{OpportunityID: o.ID, ViewerRoles: []models.Role{}}
	if u, ok := e.dir.Get(viewerID); ok {
		view.ViewerRoles = u.Roles
	}
	if view.SASubmitted, view.SPSubmitted, err = db.SubmissionFlags(ctx, e.db, o.ID); err != nil {
		return nil, storeErr("submission flags", err)
	}

	if v == nil {
		view.Version = models.AssessmentVersion{
			OpportunityID: o.ID,
			Status:        models.VersionNotStarted,
			Sections:      e.expand(nil),
		}
		return view, nil
	}

	view.Exists = true
	if v.Sections, err = db.ListSections(ctx, e.db, v.ID); err != nil {
		return nil, storeErr("list sections", err)
	}
	// отметка SUBMITTED без единой положительной оценки считается устаревшей
	if v.Status == models.VersionSubmitted && !v.HasPositiveScore() {
		v.Status = models.VersionNotStarted
	}
	v.Sections = e.expand(v.Sections)
	view.Version = *v

	if v.VersionNo > 1 {
		prev, err := db.GetVersion(ctx, e.db, o.ID, v.VersionNo-1)
		if err != nil {
			return nil, storeErr("get previous version", err)
		}
		if prev != nil {
			s := summarize(*prev)
			view.Previous = &s
		}
	}
	return view, nil
}

// History: отправленные и закрытые версии, новые сверху.
func (e *Engine) History(ctx context.Context, opportunityID string) ([]VersionSummary, error) {
	o, err := db.GetOpportunity(ctx, e.db, opportunityID)
	if err != nil {
		return nil, storeErr("get opportunity", err)
	}
	if o == nil {
		return nil, notFound("opportunity %s not found", opportunityID)
	}
	versions, err := db.ListVersions(ctx, e.db, o.ID,
		models.VersionSubmitted, models.VersionApproved, models.VersionRejected)
	if err != nil {
		return nil, storeErr("list versions", err)
	}
	out := make([]VersionSummary, 0, len(versions))
	for _, v := range versions {
		out = append(out, summarize(v))
	}
	return out, nil
}

// Contribution: вклад исполнителя в общую версию; Version пуст, пока он не отправил.
type Contribution struct {
	Role      models.Role               `json:"role"`
	UserID    string                    `json:"user_id,omitempty"`
	UserName  string                    `json:"user_name,omitempty"`
	Submitted bool                      `json:"submitted"`
	Version   *models.AssessmentVersion `json:"version,omitempty"`
}

type CombinedReview struct {
	OpportunityID string                `json:"opportunity_id"`
	Status        models.WorkflowStatus `json:"workflow_status"`
	VersionNo     int                   `json:"version_number"`
	SA            Contribution          `json:"sa"`
	SP            Contribution          `json:"sp"`
	Approvals     models.Approvals      `json:"approvals"`
	FastTracked   bool                  `json:"fast_tracked"`
}

// CombinedReview: общая версия дважды, под SA и под SP, по флагам отправки.
func (e *Engine) CombinedReview(ctx context.Context, opportunityID string) (*CombinedReview, error) {
	o, err := db.GetOpportunity(ctx, e.db, opportunityID)
	if err != nil {
		return nil, storeErr("get opportunity", err)
	}
	if o == nil {
		return nil, notFound("opportunity %s not found", opportunityID)
	}

	out := &CombinedReview{
		OpportunityID: o.ID,
		Status:        canonical(o.Status),
		Approvals:     o.Approvals,
		FastTracked:   o.FastTracked,
		SA:            Contribution{Role: models.RoleSA, UserID: o.Slots.SA, UserName: e.dir.Name(o.Slots.SA)},
		SP:            Contribution{Role: models.RoleSP, UserID: o.Slots.SP, UserName: e.dir.Name(o.Slots.SP)},
	}

	v, err := db.LatestVersion(ctx, e.db, o.ID)
	if err != nil {
		return nil, storeErr("latest version", err)
	}
	if v == nil {
		return out, nil
	}
	if v.Sections, err = db.ListSections(ctx, e.db, v.ID); err != nil {
		return nil, storeErr("list sections", err)
	}
	v.Sections = e.expand(v.Sections)
	out.VersionNo = v.VersionNo
	out.SA.Submitted, out.SP.Submitted = v.SASubmitted, v.SPSubmitted
	if v.SASubmitted {
		sa := *v
		out.SA.Version = &sa
	}
	if v.SPSubmitted {
		sp := *v
		out.SP.Version = &sp
	}
	return out, nil
}
