package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/observability/metrics"
	"github.com/vietddude/harvester/internal/platform"
)

// ProfileSource fetches the portal-side state of a wallet.
type ProfileSource interface {
	Profile(ctx context.Context, wallet *domain.Wallet) (*platform.Profile, error)
}

// PointsWorker periodically refreshes wallet points and ranks so the
// metrics stay current between farming passes.
type PointsWorker struct {
	wallets  storage.WalletRepository
	portal   ProfileSource
	interval time.Duration
}

// NewPointsWorker creates a new PointsWorker.
func NewPointsWorker(
	wallets storage.WalletRepository,
	portal ProfileSource,
	interval time.Duration,
) *PointsWorker {
	return &PointsWorker{
		wallets:  wallets,
		portal:   portal,
		interval: interval,
	}
}

// Start runs the refresh loop.
func (p *PointsWorker) Start(ctx context.Context) {
	if p.interval <= 0 {
		return // Refresh disabled
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *PointsWorker) refresh(ctx context.Context) {
	wallets, err := p.wallets.GetAll(ctx)
	if err != nil {
		slog.Error("[PointsWorker] failed to list wallets", "error", err)
		return
	}

	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return
		}

		profile, err := p.portal.Profile(ctx, wallet)
		if err != nil {
			slog.Debug("[PointsWorker] profile fetch failed", "wallet", wallet.Short(), "error", err)
			continue
		}

		wallet.Points = profile.TotalPoints
		wallet.Rank = profile.Rank
		if err := p.wallets.Update(ctx, wallet); err != nil {
			slog.Error("[PointsWorker] failed to store points", "wallet", wallet.Short(), "error", err)
			continue
		}
		metrics.WalletPoints.WithLabelValues(wallet.Short()).Set(float64(wallet.Points))
	}
}
