package models

import "time"

type WorkflowStatus string

const (
	StatusNew                  WorkflowStatus = "NEW"
	StatusHeadsAssigned        WorkflowStatus = "HEADS_ASSIGNED"
	StatusUnderAssessment      WorkflowStatus = "UNDER_ASSESSMENT"
	StatusSASubmitted          WorkflowStatus = "SA_SUBMITTED"
	StatusSPSubmitted          WorkflowStatus = "SP_SUBMITTED"
	StatusReadyForReview       WorkflowStatus = "READY_FOR_REVIEW"
	StatusPendingGHApproval    WorkflowStatus = "PENDING_GH_APPROVAL"
	StatusPendingFinalApproval WorkflowStatus = "PENDING_FINAL_APPROVAL"
	StatusApproved             WorkflowStatus = "APPROVED"
	StatusRejected             WorkflowStatus = "REJECTED"
)

// Значения, которые встречаются в старых строках. Движок их не пишет,
// но листинг и вкладки обязаны их понимать.
const (
	StatusOpen               WorkflowStatus = "OPEN"
	StatusAssigned           WorkflowStatus = "ASSIGNED"
	StatusInAssessment       WorkflowStatus = "IN_ASSESSMENT"
	StatusUnderReview        WorkflowStatus = "UNDER_REVIEW"
	StatusSubmitted          WorkflowStatus = "SUBMITTED"
	StatusSubmittedForReview WorkflowStatus = "SUBMITTED_FOR_REVIEW"
	StatusAccepted           WorkflowStatus = "ACCEPTED"
	StatusCompleted          WorkflowStatus = "COMPLETED"
	StatusWon                WorkflowStatus = "WON"
	StatusLost               WorkflowStatus = "LOST"
)

func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "PENDING"
	ApprovalNotified ApprovalState = "NOTIFIED" // только fast-track: PH/SH проинформированы, решение за GH
	ApprovalApproved ApprovalState = "APPROVED"
	ApprovalRejected ApprovalState = "REJECTED"
)

// Decided: роль уже высказалась (или её обошли через fast-track).
func (a ApprovalState) Decided() bool {
	return a == ApprovalApproved || a == ApprovalRejected || a == ApprovalNotified
}

// Slots: назначения по ролям. Пустая строка: слот свободен.
type Slots struct {
	PH string `db:"assigned_ph" json:"assigned_ph"`
	SH string `db:"assigned_sh" json:"assigned_sh"`
	SA string `db:"assigned_sa" json:"assigned_sa"`
	SP string `db:"assigned_sp" json:"assigned_sp"`
}

func (s Slots) Get(r Role) string {
	switch r {
	case RolePH:
		return s.PH
	case RoleSH:
		return s.SH
	case RoleSA:
		return s.SA
	case RoleSP:
		return s.SP
	}
	return ""
}

func (s *Slots) Set(r Role, userID string) {
	switch r {
	case RolePH:
		s.PH = userID
	case RoleSH:
		s.SH = userID
	case RoleSA:
		s.SA = userID
	case RoleSP:
		s.SP = userID
	}
}

type Approvals struct {
	GH ApprovalState `db:"gh_approval" json:"gh"`
	PH ApprovalState `db:"ph_approval" json:"ph"`
	SH ApprovalState `db:"sh_approval" json:"sh"`
}

func (a Approvals) Get(r Role) ApprovalState {
	switch r {
	case RoleGH:
		return a.GH
	case RolePH:
		return a.PH
	case RoleSH:
		return a.SH
	}
	return ""
}

func (a *Approvals) Set(r Role, st ApprovalState) {
	switch r {
	case RoleGH:
		a.GH = st
	case RolePH:
		a.PH = st
	case RoleSH:
		a.SH = st
	}
}

func (a Approvals) AllApproved() bool {
	return a.GH == ApprovalApproved && a.PH == ApprovalApproved && a.SH == ApprovalApproved
}

func PendingApprovals() Approvals {
	return Approvals{GH: ApprovalPending, PH: ApprovalPending, SH: ApprovalPending}
}

type Opportunity struct {
	ID           string         `db:"id" json:"id"`
	Number       string         `db:"number" json:"number"`
	Name         string         `db:"name" json:"name"`
	Customer     string         `db:"customer" json:"customer"`
	Practice     string         `db:"practice" json:"practice"`
	Geography    string         `db:"geography" json:"geography"`
	Currency     string         `db:"currency" json:"currency"`
	Value        float64        `db:"value" json:"value"`
	Stage        string         `db:"stage" json:"stage"`
	CloseDate    *time.Time     `db:"close_date" json:"close_date"`
	CRMUpdatedAt *time.Time     `db:"crm_updated_at" json:"last_updated"`
	SyncedAt     *time.Time     `db:"synced_at" json:"synced_at"`
	IsActive     bool           `db:"is_active" json:"active"`
	Status       WorkflowStatus `db:"status" json:"workflow_status"`
	FastTracked  bool           `db:"fast_tracked" json:"fast_tracked"`
	Slots        `json:"assignments"`
	Approvals    `json:"approvals"`
}

// CRMRecord: то, что присылает интеграция с CRM. Upsert по ID.
type CRMRecord struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	Name         string     `json:"name"`
	Customer     string     `json:"customer"`
	Practice     string     `json:"practice"`
	Geography    string     `json:"geography"`
	Currency     string     `json:"currency"`
	Value        float64    `json:"value"`
	Stage        string     `json:"stage"`
	CloseDate    *time.Time `json:"close_date"`
	CRMUpdatedAt *time.Time `json:"last_updated"`
	Active       *bool      `json:"active,omitempty"`
}
