package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// ErrInvalidQuery: кривые параметры запроса листинга.
var ErrInvalidQuery = errors.New("invalid listing query")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

const (
	DefaultLimit = 25
	MaxLimit     = 500
)

// Filter: элемент языка фильтров {id: колонка, value: список | {min,max} | скаляр}.
type Filter struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

type valueRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Query: запрос листинга от вызывающего.
type Query struct {
	Role     models.Role
	CallerID string
	Page     int
	Limit    int
	Search   string
	Tabs     []Tab
	Filters  []Filter
	All      bool // без пагинации (выгрузка)
}

// ParseFilters: JSON-массив фильтров; пустая строка: без фильтров.
func ParseFilters(raw string) ([]Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []Filter
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, invalidf("filters must be a JSON array of {id, value}")
	}
	return out, nil
}

var scopeColumn = map[models.Role]string{
	models.RolePH: "assigned_ph",
	models.RoleSH: "assigned_sh",
	models.RoleSA: "assigned_sa",
	models.RoleSP: "assigned_sp",
}

// baseFilter: активные + область роли + поиск + фильтры колонок. Вкладки сюда не входят.
func (q Query) baseFilter() (db.ListingFilter, error) {
	f := db.ListingFilter{
		Search:   q.Search,
		In:       map[string][]string{},
		Contains: map[string]string{},
	}
	switch q.Role {
	case models.RoleGH:
	case models.RolePH, models.RoleSH, models.RoleSA, models.RoleSP:
		f.ScopeColumn = scopeColumn[q.Role]
		f.ScopeUserID = q.CallerID
	default:
		return f, invalidf("unknown role %q", q.Role)
	}

	for _, flt := range q.Filters {
		if err := applyFilter(&f, flt); err != nil {
			return f, err
		}
	}
	return f, nil
}

func applyFilter(f *db.ListingFilter, flt Filter) error {
	id := strings.ToLower(strings.TrimSpace(flt.ID))
	raw := []byte(flt.Value)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	switch raw[0] {
	case '[':
		if !db.IsFilterColumn(id) {
			return nil
		}
		var xs []any
		if err := json.Unmarshal(raw, &xs); err != nil {
			return invalidf("filter %s: bad list", id)
		}
		for _, x := range xs {
			f.In[id] = append(f.In[id], scalar(x))
		}
	case '{':
		if id != "value" {
			return nil
		}
		var r valueRange
		if err := json.Unmarshal(raw, &r); err != nil {
			return invalidf("filter %s: range must be {min, max}", id)
		}
		f.ValueMin, f.ValueMax = r.Min, r.Max
	default:
		if !db.IsFilterColumn(id) {
			return nil
		}
		var x any
		if err := json.Unmarshal(raw, &x); err != nil {
			return invalidf("filter %s: bad value", id)
		}
		if s := strings.TrimSpace(scalar(x)); s != "" {
			f.Contains[id] = s
		}
	}
	return nil
}

func scalar(x any) string {
	switch v := x.(type) {
	case string:
		return v
	case nil:
		return ""
	}
	return fmt.Sprint(x)
}

func (q Query) window() (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
