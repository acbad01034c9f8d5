package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// WalletRepo implements storage.WalletRepository using PostgreSQL.
type WalletRepo struct {
	db *DB
}

// NewWalletRepo creates a new PostgreSQL wallet repository.
func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// Save inserts a new wallet and fills in its generated id.
func (r *WalletRepo) Save(ctx context.Context, wallet *domain.Wallet) error {
	const query = `
		INSERT INTO wallets (
			private_key, address, smart_address, proxy,
			auth_token, invite_code, points, rank,
			bound_eoa, twitter_token, twitter_status,
			discord_token, discord_proxy, discord_status,
			next_faucet_at, next_ai_chat_at,
			airdrop_eligible, airdrop_amount, completed
		) VALUES (
			:private_key, :address, :smart_address, :proxy,
			:auth_token, :invite_code, :points, :rank,
			:bound_eoa, :twitter_token, :twitter_status,
			:discord_token, :discord_proxy, :discord_status,
			:next_faucet_at, :next_ai_chat_at,
			:airdrop_eligible, :airdrop_amount, :completed
		)
		ON CONFLICT (address) DO NOTHING
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, wallet)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&wallet.ID); err != nil {
			return fmt.Errorf("failed to scan wallet id: %w", err)
		}
	}
	return rows.Err()
}

// GetAll retrieves every wallet ordered by id.
func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.Wallet, error) {
	var wallets []*domain.Wallet
	if err := r.db.SelectContext(ctx, &wallets, `SELECT * FROM wallets ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// GetByID retrieves a wallet by id.
func (r *WalletRepo) GetByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := r.db.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %d: %w", id, err)
	}
	return &wallet, nil
}

// GetByAddress retrieves a wallet by address.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := r.db.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", address, err)
	}
	return &wallet, nil
}

// Update persists mutable wallet state.
func (r *WalletRepo) Update(ctx context.Context, wallet *domain.Wallet) error {
	const query = `
		UPDATE wallets SET
			smart_address    = :smart_address,
			proxy            = :proxy,
			auth_token       = :auth_token,
			invite_code      = :invite_code,
			points           = :points,
			rank             = :rank,
			bound_eoa        = :bound_eoa,
			twitter_token    = :twitter_token,
			twitter_status   = :twitter_status,
			discord_token    = :discord_token,
			discord_proxy    = :discord_proxy,
			discord_status   = :discord_status,
			next_faucet_at   = :next_faucet_at,
			next_ai_chat_at  = :next_ai_chat_at,
			airdrop_eligible = :airdrop_eligible,
			airdrop_amount   = :airdrop_amount,
			completed        = :completed,
			updated_at       = NOW()
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, wallet)
	if err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return storage.ErrWalletNotFound
	}
	return nil
}
