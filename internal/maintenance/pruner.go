// Package maintenance runs background housekeeping for the token ledger.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sonoralabs/sonora/internal/metrics"
	"github.com/sonoralabs/sonora/internal/repository"
)

// Rows are kept for a grace period after expiry so a late redemption
// still reads Expired instead of NotFound.
const pruneGrace = 48 * time.Hour

// Pruner deletes long-expired ledger rows on a cron schedule. Expiry
// itself is enforced at redemption time; pruning only reclaims space.
type Pruner struct {
	tokens repository.TokenRepository
	logger *slog.Logger
	cron   *cron.Cron
}

func NewPruner(tokens repository.TokenRepository, logger *slog.Logger) *Pruner {
	return &Pruner{
		tokens: tokens,
		logger: logger.With("component", "token_pruner"),
		cron:   cron.New(),
	}
}

// Start schedules an hourly prune. The first run happens on schedule,
// not immediately.
func (p *Pruner) Start() error {
	_, err := p.cron.AddFunc("@hourly", p.prune)
	if err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-pruneGrace)
	removed, err := p.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		p.logger.Error("prune expired tokens", "error", err)
		return
	}
	if removed > 0 {
		metrics.TokensPrunedTotal.Add(float64(removed))
		p.logger.Info("pruned expired tokens", "removed", removed)
	}
}
