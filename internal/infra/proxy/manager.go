package proxy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/observability/metrics"
)

// Manager swaps a wallet's dead proxy for a fresh one from the reserve pool.
type Manager struct {
	pool    ReservePool
	wallets storage.WalletRepository
}

func NewManager(pool ReservePool, wallets storage.WalletRepository) *Manager {
	return &Manager{pool: pool, wallets: wallets}
}

// Failover assigns the next reserve proxy to the wallet and persists it.
// The consumed entry is gone from the pool even if persisting fails, which
// keeps it from being handed to another wallet.
func (m *Manager) Failover(ctx context.Context, wallet *domain.Wallet) (string, error) {
	entry, err := m.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}

	old := wallet.Proxy
	wallet.Proxy = entry
	if err := m.wallets.Update(ctx, wallet); err != nil {
		return "", fmt.Errorf("failed to persist proxy change: %w", err)
	}

	metrics.ProxyFailoversTotal.Inc()
	slog.Info("Proxy failover", "wallet", wallet.Short(), "old", old, "new", entry)
	return entry, nil
}
