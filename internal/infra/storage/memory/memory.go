package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// MemoryStorage is an in-memory wallet store used when no database URL is
// configured, and as a test double.
type MemoryStorage struct {
	wallets map[int64]*domain.Wallet
	nextID  int64
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		wallets: make(map[int64]*domain.Wallet),
		nextID:  1,
	}
}

type WalletRepo struct {
	store *MemoryStorage
}

func NewWalletRepo(store *MemoryStorage) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Save(ctx context.Context, wallet *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, w := range r.store.wallets {
		if w.Address == wallet.Address {
			return fmt.Errorf("wallet %s already exists", wallet.Address)
		}
	}

	cp := *wallet
	cp.ID = r.store.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.store.nextID++
	r.store.wallets[cp.ID] = &cp
	wallet.ID = cp.ID
	return nil
}

func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Wallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WalletRepo) GetByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	w, ok := r.store.wallets[id]
	if !ok {
		return nil, storage.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, w := range r.store.wallets {
		if w.Address == address {
			cp := *w
			return &cp, nil
		}
	}
	return nil, storage.ErrWalletNotFound
}

func (r *WalletRepo) Update(ctx context.Context, wallet *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.wallets[wallet.ID]; !ok {
		return storage.ErrWalletNotFound
	}
	cp := *wallet
	cp.UpdatedAt = time.Now()
	r.store.wallets[wallet.ID] = &cp
	return nil
}
