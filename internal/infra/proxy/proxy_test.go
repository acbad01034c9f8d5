package proxy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage/memory"
)

func writePool(t *testing.T, entries ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reserve_proxies.txt")
	if err := os.WriteFile(path, []byte(strings.Join(entries, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilePoolAcquire(t *testing.T) {
	path := writePool(t, "http://p1:8080", "http://p2:8080")
	pool := NewFilePool(path)

	got, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got != "http://p1:8080" {
		t.Errorf("Acquire() = %q, want first entry", got)
	}

	// Consumed entry must be gone from the file.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "p1") {
		t.Errorf("consumed entry still in file: %q", data)
	}
	if !strings.Contains(string(data), "p2") {
		t.Errorf("remaining entry missing from file: %q", data)
	}
}

func TestFilePoolExhausted(t *testing.T) {
	path := writePool(t, "http://only:8080")
	pool := NewFilePool(path)

	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, domain.ErrReserveExhausted) {
		t.Errorf("Acquire() error = %v, want ErrReserveExhausted", err)
	}
}

func TestFilePoolSkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reserve_proxies.txt")
	content := "# reserve pool\n\nhttp://p1:8080\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pool := NewFilePool(path)
	got, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got != "http://p1:8080" {
		t.Errorf("Acquire() = %q", got)
	}
}

func TestFailoverPersistsProxy(t *testing.T) {
	store := memory.NewMemoryStorage()
	repo := memory.NewWalletRepo(store)
	wallet := &domain.Wallet{Address: "0xabc", Proxy: "http://dead:8080"}
	if err := repo.Save(context.Background(), wallet); err != nil {
		t.Fatal(err)
	}

	pool := NewFilePool(writePool(t, "http://fresh:8080"))
	mgr := NewManager(pool, repo)

	got, err := mgr.Failover(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Failover() error = %v", err)
	}
	if got != "http://fresh:8080" {
		t.Errorf("Failover() = %q", got)
	}

	stored, err := repo.GetByID(context.Background(), wallet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Proxy != "http://fresh:8080" {
		t.Errorf("stored proxy = %q, want fresh entry", stored.Proxy)
	}
}

func TestFailoverConcurrentDistinctProxies(t *testing.T) {
	store := memory.NewMemoryStorage()
	repo := memory.NewWalletRepo(store)

	w1 := &domain.Wallet{Address: "0x01"}
	w2 := &domain.Wallet{Address: "0x02"}
	for _, w := range []*domain.Wallet{w1, w2} {
		if err := repo.Save(context.Background(), w); err != nil {
			t.Fatal(err)
		}
	}

	pool := NewFilePool(writePool(t, "http://p1:8080", "http://p2:8080"))
	mgr := NewManager(pool, repo)

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	for i, w := range []*domain.Wallet{w1, w2} {
		wg.Add(1)
		go func(i int, w *domain.Wallet) {
			defer wg.Done()
			results[i], errs[i] = mgr.Failover(context.Background(), w)
		}(i, w)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Failover() #%d error = %v", i, err)
		}
	}
	if results[0] == results[1] {
		t.Fatalf("both failovers got %q, entries must be distinct", results[0])
	}

	// Pool must now be empty.
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, domain.ErrReserveExhausted) {
		t.Errorf("Acquire() after both failovers = %v, want ErrReserveExhausted", err)
	}
}

func TestFailoverExhaustedPool(t *testing.T) {
	store := memory.NewMemoryStorage()
	repo := memory.NewWalletRepo(store)
	wallet := &domain.Wallet{Address: "0xabc"}
	if err := repo.Save(context.Background(), wallet); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(NewFilePool(path), repo)
	if _, err := mgr.Failover(context.Background(), wallet); !errors.Is(err, domain.ErrReserveExhausted) {
		t.Errorf("Failover() error = %v, want ErrReserveExhausted", err)
	}
}
