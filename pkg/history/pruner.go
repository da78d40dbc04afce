package history

import (
	"context"
	"log/slog"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

// Store is the subset of SQLiteStore the pruner needs.
type Store interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExcess(ctx context.Context, keep int64) (int64, error)
}

// Pruner removes runs that fall outside the retention policy.
type Pruner struct {
	store  Store
	config config.RetentionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner for the given retention policy.
func NewPruner(store Store, cfg config.RetentionConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: cfg,
		logger: slog.Default().With("component", "history.pruner"),
		now:    time.Now,
	}
}

// Prune deletes runs older than Days, then trims the oldest runs until at
// most MaxRuns remain. Zero disables either rule. It returns the total
// number of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.Days)
		n, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, err
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned expired runs", "deleted", n, "cutoff", cutoff.UTC())
		}
	}

	if p.config.MaxRuns > 0 {
		n, err := p.store.DeleteExcess(ctx, p.config.MaxRuns)
		if err != nil {
			return total, err
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned excess runs", "deleted", n, "max_runs", p.config.MaxRuns)
		}
	}

	return total, nil
}
