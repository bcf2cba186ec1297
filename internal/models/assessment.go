package models

import "time"

type VersionStatus string

const (
	VersionNotStarted      VersionStatus = "NOT_STARTED" // только для чтения: версии нет или «пустой» SUBMITTED
	VersionDraft           VersionStatus = "DRAFT"
	VersionUnderAssessment VersionStatus = "UNDER_ASSESSMENT"
	VersionSubmitted       VersionStatus = "SUBMITTED"
	VersionApproved        VersionStatus = "APPROVED"
	VersionRejected        VersionStatus = "REJECTED"
)

func (s VersionStatus) IsTerminal() bool {
	return s == VersionApproved || s == VersionRejected
}

type AssessmentVersion struct {
	ID             string         `db:"id" json:"id"`
	OpportunityID  string         `db:"opportunity_id" json:"opportunity_id"`
	VersionNo      int            `db:"version_no" json:"version_number"`
	Status         VersionStatus  `db:"status" json:"status"`
	OverallScore   *int           `db:"overall_score" json:"overall_score"`
	Confidence     string         `db:"confidence_level" json:"confidence_level"`
	Recommendation string         `db:"recommendation" json:"recommendation"`
	Summary        string         `db:"summary" json:"summary"`
	Attachment     string         `db:"attachment_name" json:"attachment_name"`
	SASubmitted    bool           `db:"sa_submitted" json:"sa_submitted"`
	SPSubmitted    bool           `db:"sp_submitted" json:"sp_submitted"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	SubmittedAt    *time.Time     `db:"submitted_at" json:"submitted_at"`
	Sections       []SectionValue `db:"-" json:"sections"`
}

type SectionValue struct {
	SectionCode string   `db:"section_code" json:"section_code"`
	Score       float64  `db:"score" json:"score"`
	Notes       string   `db:"notes" json:"notes"`
	Reasons     []string `db:"reasons" json:"selected_reasons"`
}

// HasPositiveScore: хотя бы одна секция оценена выше нуля.
func (v *AssessmentVersion) HasPositiveScore() bool {
	for _, s := range v.Sections {
		if s.Score > 0 {
			return true
		}
	}
	return false
}

// AssignmentLogEntry: журнал назначений; движок его только пишет.
type AssignmentLogEntry struct {
	OpportunityID string    `db:"opportunity_id"`
	Role          Role      `db:"role"`
	UserID        string    `db:"user_id"`
	AssignedBy    string    `db:"assigned_by"`
	AssignedAt    time.Time `db:"assigned_at"`
}
