package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/bqs/internal/models"
)

// SeedRubric зеркалирует рубрику в таблицу rubric_sections (для отчётов и join'ов).
func SeedRubric(ctx context.Context, database *sql.DB, sections []models.RubricSection) error {
	return WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, s := range sections {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO rubric_sections (code, name, display_order, weight)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (code) DO UPDATE
				SET name = excluded.name, display_order = excluded.display_order, weight = excluded.weight
			`, s.Code, s.Name, s.DisplayOrder, s.Weight)
			if err != nil {
				return fmt.Errorf("seed rubric section %s: %w", s.Code, err)
			}
		}
		return nil
	})
}

func ListRubricSections(ctx context.Context, q Querier) ([]models.RubricSection, error) {
	rows, err := q.QueryContext(ctx, `SELECT code, name, display_order, weight FROM rubric_sections ORDER BY display_order, code`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.RubricSection
	for rows.Next() {
		var s models.RubricSection
		if err := rows.Scan(&s.Code, &s.Name, &s.DisplayOrder, &s.Weight); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
