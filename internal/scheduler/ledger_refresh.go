package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"apdash/internal/ledger"
)

// Refresher reloads the ledger from its source.
type Refresher interface {
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

// LedgerRefreshJob re-fetches the ledger so that requests after a sheet
// edit see fresh data without waiting for the cache to expire.
type LedgerRefreshJob struct {
	log     zerolog.Logger
	ledger  Refresher
	timeout time.Duration
}

// NewLedgerRefreshJob creates a refresh job. A zero timeout means no limit.
func NewLedgerRefreshJob(log zerolog.Logger, ledger Refresher, timeout time.Duration) *LedgerRefreshJob {
	return &LedgerRefreshJob{
		log:     log.With().Str("job", "ledger_refresh").Logger(),
		ledger:  ledger,
		timeout: timeout,
	}
}

// Name returns the job name
func (j *LedgerRefreshJob) Name() string {
	return "ledger_refresh"
}

// Run fetches the ledger once. On failure the previous snapshot stays in
// place and the error is returned for the scheduler to log.
func (j *LedgerRefreshJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := j.ledger.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("ledger refresh: %w", err)
	}

	j.log.Info().
		Int("records", len(snap.Records)).
		Int("dropped", snap.Diagnostics.Dropped).
		Dur("duration", time.Since(start)).
		Msg("Ledger refreshed")
	return nil
}
