package storage

import (
	"context"
	"errors"

	"github.com/vietddude/harvester/internal/core/domain"
)

var (
	// ErrWalletNotFound is returned when a wallet doesn't exist
	ErrWalletNotFound = errors.New("wallet not found")
)

// WalletRepository handles wallet storage operations
type WalletRepository interface {
	// Save inserts a new wallet
	Save(ctx context.Context, wallet *domain.Wallet) error

	// GetAll retrieves every wallet ordered by id
	GetAll(ctx context.Context) ([]*domain.Wallet, error)

	// GetByID retrieves a wallet by id
	GetByID(ctx context.Context, id int64) (*domain.Wallet, error)

	// GetByAddress retrieves a wallet by address
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)

	// Update persists mutable wallet state (proxy, cooldowns, points,
	// tokens, social statuses, airdrop fields)
	Update(ctx context.Context, wallet *domain.Wallet) error
}
