package workflow

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// Ingest: пакетный upsert записей CRM. Слоты, статус, согласования и версии не трогает.
func (e *Engine) Ingest(ctx context.Context, records []models.CRMRecord) (int, error) {
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return 0, invalid("record %d has no id", i)
		}
	}
	syncedAt := e.now()
	err := db.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := db.UpsertOpportunity(ctx, tx, r, syncedAt); err != nil {
				return storeErr("upsert opportunity", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info("crm batch ingested", zap.Int("records", len(records)))
	return len(records), nil
}
