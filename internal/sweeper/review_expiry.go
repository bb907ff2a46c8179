package sweeper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/truburn/claim-ledger/internal/adapter"
	"github.com/truburn/claim-ledger/internal/logger"
	"github.com/truburn/claim-ledger/internal/review"
)

// ReviewExpirySweeperConfig holds configuration for the review expiry sweeper
type ReviewExpirySweeperConfig struct {
	// Interval is the pause between sweep cycles
	Interval time.Duration
}

// reviewExpirySweeper implements the Sweeper interface for settling past-due
// review requests. The settlement logic itself lives in the review service and
// is shared with the opportunistic read-path sweeps.
type reviewExpirySweeper struct {
	config    *ReviewExpirySweeperConfig
	service   *review.Service
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewReviewExpirySweeper creates a new review expiry sweeper
func NewReviewExpirySweeper(config *ReviewExpirySweeperConfig, service *review.Service, clock adapter.Clock) Sweeper {
	return &reviewExpirySweeper{
		config:    config,
		service:   service,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *reviewExpirySweeper) Name() string {
	return "review-expiry-sweeper"
}

// Start begins the sweeper's main loop - sweeps, then sleeps for the
// configured interval, until the context is canceled or stop is requested
func (s *reviewExpirySweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting review expiry sweeper",
		zap.Duration("interval", s.config.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Review expiry sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Review expiry sweeper stop requested")
			return nil
		default:
			s.runSweepCycle(ctx)
			if !s.sleep(ctx, s.config.Interval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *reviewExpirySweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping review expiry sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Review expiry sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Review expiry sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle runs a single sweep cycle
func (s *reviewExpirySweeper) runSweepCycle(ctx context.Context) {
	startTime := s.clock.Now()

	count, err := s.service.SweepExpired(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, err)
		return
	}

	if count > 0 {
		logger.InfoCtx(ctx, "Sweep cycle completed",
			zap.Int("finalized", count),
			zap.Duration("duration", s.clock.Since(startTime)),
		)
	}
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns true if sleep completed normally.
func (s *reviewExpirySweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
