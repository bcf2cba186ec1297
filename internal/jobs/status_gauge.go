package jobs

import (
	"context"
	"time"

	"github.com/Spok95/bqs/internal/ctxutil"
	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/metrics"
)

// StatusGauge: периодический пересчёт гейджа bqs_opportunities{status}.
func StatusGauge(q db.Querier) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		counts, err := db.CountByStatus(ctx, q)
		if err != nil {
			return err
		}
		metrics.SetOpportunityCounts(counts)
		return nil
	}
}

// DBPing: пинг базы с замером задержки.
func DBPing(ping func(context.Context) error) Job {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return ping(ctx)
	}
}
