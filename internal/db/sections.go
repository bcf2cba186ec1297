package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/bqs/internal/models"
)

func pqArray(xs []string) any { return pq.Array(xs) }

// ListSections: значения секций версии в порядке рубрики.
func ListSections(ctx context.Context, q Querier, versionID string) ([]models.SectionValue, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.section_code, s.score, s.notes, s.reasons
		FROM section_values s
		LEFT JOIN rubric_sections r ON r.code = s.section_code
		WHERE s.version_id = $1
		ORDER BY COALESCE(r.display_order, 1000), s.section_code
	`, versionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.SectionValue
	for rows.Next() {
		var (
			sv  models.SectionValue
			raw []byte
		)
		if err := rows.Scan(&sv.SectionCode, &sv.Score, &sv.Notes, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &sv.Reasons); err != nil {
				return nil, fmt.Errorf("section %s reasons: %w", sv.SectionCode, err)
			}
		}
		if sv.Reasons == nil {
			sv.Reasons = []string{}
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// UpsertSection: уникальность по (version_id, section_code), обновление на месте.
func UpsertSection(ctx context.Context, q Querier, versionID string, sv models.SectionValue) error {
	reasons := sv.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	raw, err := json.Marshal(reasons)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO section_values (version_id, section_code, score, notes, reasons, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
		ON CONFLICT (version_id, section_code) DO UPDATE
		SET score = excluded.score, notes = excluded.notes, reasons = excluded.reasons, updated_at = now()
	`, versionID, sv.SectionCode, sv.Score, sv.Notes, string(raw))
	return err
}

// CopySections клонирует значения секций между версиями.
func CopySections(ctx context.Context, q Querier, fromVersionID, toVersionID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO section_values (version_id, section_code, score, notes, reasons, updated_at)
		SELECT $2::uuid, section_code, score, notes, reasons, now()
		FROM section_values WHERE version_id = $1
	`, fromVersionID, toVersionID)
	return err
}
