package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/bqs/internal/models"
)

// ListingFilter: базовый набор для листинга: активные, в зоне видимости роли,
// плюс поиск и фильтры по колонкам. Вкладки считаются поверх него.
type ListingFilter struct {
	ScopeColumn string // assigned_ph / assigned_sh / ...; пусто: без ограничения (GH)
	ScopeUserID string
	Search      string
	In          map[string][]string // колонка -> множество значений
	Contains    map[string]string   // колонка -> подстрока
	ValueMin    *float64
	ValueMax    *float64

	IncludeInactive bool
}

// ListingRow: возможность плюс сводка по последней версии и имена назначенных.
type ListingRow struct {
	models.Opportunity
	VersionNo        int
	VersionStatus    models.VersionStatus
	OverallScore     *int
	HasPositiveScore bool
	PHName           string
	SHName           string
	SAName           string
	SPName           string
}

// Колонки, по которым разрешено фильтровать. Остальные id игнорируются.
var filterColumns = map[string]string{
	"id":        "o.id",
	"number":    "o.number",
	"name":      "o.name",
	"customer":  "o.customer",
	"practice":  "o.practice",
	"geography": "o.geography",
	"currency":  "o.currency",
	"stage":     "o.stage",
	"status":    "o.status",
}

var scopeColumns = map[string]bool{
	"assigned_ph": true, "assigned_sh": true, "assigned_sa": true, "assigned_sp": true,
}

// IsFilterColumn: знает ли листинг такую колонку.
func IsFilterColumn(id string) bool {
	_, ok := filterColumns[id]
	return ok
}

func buildListingQuery(f ListingFilter) (string, []any) {
	var (
		where = []string{"TRUE"}
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeInactive {
		where = append(where, "o.is_active = TRUE")
	}
	if f.ScopeColumn != "" {
		if !scopeColumns[f.ScopeColumn] || f.ScopeUserID == "" {
			// неизвестная область или нет вызывающего: пустой результат, не «все»
			where = append(where, "FALSE")
		} else {
			where = append(where, "o."+f.ScopeColumn+" = "+next(f.ScopeUserID))
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := next("%" + s + "%")
		where = append(where, fmt.Sprintf("(o.name ILIKE %s OR o.customer ILIKE %s OR o.number ILIKE %s OR o.id ILIKE %s)", p, p, p, p))
	}
	for _, id := range sortedKeys(f.In) {
		col, ok := filterColumns[id]
		if !ok || len(f.In[id]) == 0 {
			continue
		}
		where = append(where, col+" = ANY("+next(pqArray(f.In[id]))+")")
	}
	for _, id := range sortedKeys(f.Contains) {
		col, ok := filterColumns[id]
		if !ok || f.Contains[id] == "" {
			continue
		}
		where = append(where, col+" ILIKE "+next("%"+f.Contains[id]+"%"))
	}
	if f.ValueMin != nil {
		where = append(where, "o.value >= "+next(*f.ValueMin))
	}
	if f.ValueMax != nil {
		where = append(where, "o.value <= "+next(*f.ValueMax))
	}

	q := `
SELECT ` + opportunityColumns + `,
       COALESCE(v.version_no, 0), COALESCE(v.status, ''), v.overall_score, COALESCE(v.has_score, FALSE),
       COALESCE(uph.name, ''), COALESCE(ush.name, ''), COALESCE(usa.name, ''), COALESCE(usp.name, '')
FROM opportunities o
LEFT JOIN LATERAL (
    SELECT av.version_no, av.status, av.overall_score,
           EXISTS (SELECT 1 FROM section_values s WHERE s.version_id = av.id AND s.score > 0) AS has_score
    FROM assessment_versions av
    WHERE av.opportunity_id = o.id
    ORDER BY av.version_no DESC
    LIMIT 1
) v ON TRUE
LEFT JOIN users uph ON uph.id = o.assigned_ph
LEFT JOIN users ush ON ush.id = o.assigned_sh
LEFT JOIN users usa ON usa.id = o.assigned_sa
LEFT JOIN users usp ON usp.id = o.assigned_sp
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY o.crm_updated_at DESC NULLS LAST, o.id`
	return q, args
}

// ListOpportunityRows: базовый набор, отсортированный по последнему обновлению в CRM.
func ListOpportunityRows(ctx context.Context, q Querier, f ListingFilter) ([]ListingRow, error) {
	query, args := buildListingQuery(f)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ListingRow
	for rows.Next() {
		row, err := scanListingRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// GetOpportunityRow: одна строка в форме листинга (без учёта области видимости).
func GetOpportunityRow(ctx context.Context, q Querier, id string) (*ListingRow, error) {
	// карточка доступна и для скрытых (is_active = FALSE)
	query, args := buildListingQuery(ListingFilter{In: map[string][]string{"id": {id}}, IncludeInactive: true})
	row, err := scanListingRow(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return row, err
}

func scanListingRow(sc interface{ Scan(...any) error }) (*ListingRow, error) {
	var (
		d       opportunityDest
		r       ListingRow
		vStatus string
		overall sql.NullInt64
	)
	targets := append(d.targets(), &r.VersionNo, &vStatus, &overall, &r.HasPositiveScore,
		&r.PHName, &r.SHName, &r.SAName, &r.SPName)
	if err := sc.Scan(targets...); err != nil {
		return nil, err
	}
	r.Opportunity = *d.result()
	r.VersionStatus = models.VersionStatus(vStatus)
	if overall.Valid {
		n := int(overall.Int64)
		r.OverallScore = &n
	}
	return &r, nil
}

// LastSyncAt: когда CRM последний раз что-то присылала.
func LastSyncAt(ctx context.Context, q Querier) (*time.Time, error) {
	var t sql.NullTime
	if err := q.QueryRowContext(ctx, `SELECT max(synced_at) FROM opportunities`).Scan(&t); err != nil {
		return nil, err
	}
	return timePtr(t), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
