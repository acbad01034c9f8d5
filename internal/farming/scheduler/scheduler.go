package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/observability/metrics"
)

// TaskFunc is one per-wallet unit of work.
type TaskFunc func(ctx context.Context, wallet *domain.Wallet) error

// Scheduler fans a task out over the wallet pool with bounded parallelism.
// One wallet failing never takes down the pass; cancellation does.
type Scheduler struct {
	threads       int
	shuffle       bool
	walletTimeout time.Duration
}

func New(cfg config.FarmConfig) *Scheduler {
	return &Scheduler{
		threads:       cfg.Threads,
		shuffle:       cfg.Shuffle,
		walletTimeout: time.Hour,
	}
}

// Execute runs one pass over the wallets, or keeps re-running passes with a
// random pause in between when repeat is set. It returns nil when all
// requested passes finished and the context error when canceled.
func (s *Scheduler) Execute(
	ctx context.Context,
	wallets []*domain.Wallet,
	task TaskFunc,
	repeat bool,
	passPause config.Range,
) error {
	for {
		if err := s.runPass(ctx, wallets, task); err != nil {
			return err
		}
		if !repeat {
			return nil
		}

		pause := passPause.RandDuration(time.Minute)
		slog.Info("Pass finished, sleeping until next run", "pause", pause)

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context, wallets []*domain.Wallet, task TaskFunc) error {
	if len(wallets) == 0 {
		return nil
	}

	passID := uuid.NewString()[:8]
	start := time.Now()

	limit := min(len(wallets), s.threads)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))

	order := wallets
	if s.shuffle {
		order = make([]*domain.Wallet, len(wallets))
		copy(order, wallets)
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	slog.Info("Starting pass", "pass", passID, "wallets", len(order), "parallelism", limit)

	var wg sync.WaitGroup
	for _, wallet := range order {
		wg.Add(1)
		go func(wallet *domain.Wallet) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			s.runWallet(ctx, passID, wallet, task)
		}(wallet)
	}
	wg.Wait()

	metrics.PassDuration.Observe(time.Since(start).Seconds())
	slog.Info("Pass finished", "pass", passID, "took", time.Since(start))
	return ctx.Err()
}

// runWallet isolates one wallet: its errors and panics are logged, not
// propagated, so the rest of the pass keeps going.
func (s *Scheduler) runWallet(ctx context.Context, passID string, wallet *domain.Wallet, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Wallet task panicked", "pass", passID, "wallet", wallet.Short(), "panic", r)
		}
	}()

	wctx, cancel := context.WithTimeout(ctx, s.walletTimeout)
	defer cancel()

	err := task(wctx, wallet)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		slog.Error("Wallet task timed out", "pass", passID, "wallet", wallet.Short(), "timeout", s.walletTimeout)
	case ctx.Err() != nil:
		// Pass canceled, nothing wallet-specific to report.
	default:
		slog.Error("Wallet task failed", "pass", passID, "wallet", wallet.Short(), "error", err)
	}
}
