package listing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// Item: строка листинга для слоя представления.
type Item struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	Name           string                `json:"name"`
	Customer       string                `json:"customer"`
	Practice       string                `json:"practice"`
	Value          float64               `json:"value"`
	Currency       string                `json:"currency"`
	Stage          string                `json:"stage"`
	Geography      string                `json:"geography"`
	CloseDate      *time.Time            `json:"close_date"`
	LastUpdated    *time.Time            `json:"last_updated"`
	Active         bool                  `json:"active"`
	WorkflowStatus models.WorkflowStatus `json:"workflow_status"`
	WinProbability *int                  `json:"win_probability"`
	VersionNo      int                   `json:"version_number"`
	PHName         string                `json:"ph_name"`
	SHName         string                `json:"sh_name"`
	SAName         string                `json:"sa_name"`
	SPName         string                `json:"sp_name"`
	Assignments    models.Slots          `json:"assignments"`
	Approvals      models.Approvals      `json:"approvals"`
}

// Result: страница листинга со счётчиками по вкладкам.
type Result struct {
	Items      []Item      `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Counts     map[Tab]int `json:"counts"`
	TotalValue float64     `json:"total_value"`
	LastSync   *time.Time  `json:"last_sync"`
}

// DeriveStatus: отображаемый статус. Пустой или OPEN выводится из последней версии.
func DeriveStatus(r db.ListingRow) models.WorkflowStatus {
	if r.Status != "" && r.Status != models.StatusOpen {
		return r.Status
	}
	switch {
	case r.VersionStatus == models.VersionSubmitted:
		return models.StatusSubmitted
	case r.VersionStatus == models.VersionApproved:
		return models.StatusApproved
	case r.VersionStatus == models.VersionRejected:
		return models.StatusRejected
	case r.HasPositiveScore:
		return models.StatusUnderAssessment
	case r.Slots != models.Slots{}:
		return models.StatusAssigned
	}
	return models.StatusNew
}

func toRow(r db.ListingRow) row {
	return row{Status: DeriveStatus(r), Slots: r.Slots, Approvals: r.Approvals}
}

func toItem(r db.ListingRow) Item {
	return Item{
		ID:             r.ID,
		Number:         r.Number,
		Name:           r.Name,
		Customer:       r.Customer,
		Practice:       r.Practice,
		Value:          r.Value,
		Currency:       r.Currency,
		Stage:          r.Stage,
		Geography:      r.Geography,
		CloseDate:      r.CloseDate,
		LastUpdated:    r.CRMUpdatedAt,
		Active:         r.IsActive,
		WorkflowStatus: DeriveStatus(r),
		WinProbability: r.OverallScore,
		VersionNo:      r.VersionNo,
		PHName:         r.PHName,
		SHName:         r.SHName,
		SAName:         r.SAName,
		SPName:         r.SPName,
		Assignments:    r.Slots,
		Approvals:      r.Approvals,
	}
}

type Service struct {
	q   db.Querier
	log *zap.Logger
}

func New(q db.Querier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{q: q, log: log}
}

// List: базовый набор из базы, вкладки, счётчики и страница считаются здесь.
func (s *Service) List(ctx context.Context, q Query) (*Result, error) {
	base, err := q.baseFilter()
	if err != nil {
		return nil, err
	}
	tabs := q.Tabs
	if len(tabs) == 0 {
		tabs = []Tab{TabAll}
	}

	rows, err := db.ListOpportunityRows(ctx, s.q, base)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	lastSync, err := db.LastSyncAt(ctx, s.q)
	if err != nil {
		return nil, fmt.Errorf("last sync: %w", err)
	}

	res := Summarize(rows, q.Role, tabs)
	res.LastSync = lastSync
	if !q.All {
		res.Page, res.Limit = q.window()
		res.Items = paginate(res.Items, res.Page, res.Limit)
	}

	s.log.Debug("listing",
		zap.String("role", string(q.Role)),
		zap.Int("base", len(rows)),
		zap.Int("matched", res.TotalCount),
	)
	return res, nil
}

// Summarize: вкладки и счётчики поверх базового набора (без пагинации).
func Summarize(rows []db.ListingRow, role models.Role, tabs []Tab) *Result {
	res := &Result{Items: []Item{}, Counts: make(map[Tab]int)}
	for _, t := range tabsFor(role) {
		res.Counts[t] = 0
	}
	for _, r := range rows {
		tr := toRow(r)
		for t := range res.Counts {
			if Match(t, role, tr) {
				res.Counts[t]++
			}
		}
		if MatchAny(tabs, role, tr) {
			res.Items = append(res.Items, toItem(r))
			res.TotalValue += r.Value
		}
	}
	res.TotalCount = len(res.Items)
	return res
}

func paginate(items []Item, page, limit int) []Item {
	// сначала сравниваем номер страницы, иначе (page-1)*limit переполняется
	if page < 1 || limit < 1 || page-1 > len(items)/limit {
		return []Item{}
	}
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []Item{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Get: карточка по id; nil, nil если такой нет.
func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	r, err := db.GetOpportunityRow(ctx, s.q, id)
	if err != nil {
		return nil, fmt.Errorf("get opportunity %s: %w", id, err)
	}
	if r == nil {
		return nil, nil
	}
	it := toItem(*r)
	return &it, nil
}
