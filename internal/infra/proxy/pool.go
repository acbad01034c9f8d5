package proxy

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vietddude/harvester/internal/core/domain"
	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/observability/metrics"
)

// ReservePool hands out spare proxies. Acquire removes the returned entry
// from the pool so it is never given out twice.
type ReservePool interface {
	Acquire(ctx context.Context) (string, error)
}

// FilePool is a reserve pool backed by a line file. Consuming an entry
// rewrites the file with the remainder, under a mutex so concurrent
// failovers never hand out the same proxy.
type FilePool struct {
	path string

	mu      sync.Mutex
	entries []string
	loaded  bool
}

func NewFilePool(path string) *FilePool {
	return &FilePool{path: path}
}

func (p *FilePool) Acquire(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := p.load(); err != nil {
			return "", err
		}
	}

	if len(p.entries) == 0 {
		return "", domain.ErrReserveExhausted
	}

	entry := p.entries[0]
	p.entries = p.entries[1:]
	if err := p.flush(); err != nil {
		// Put it back so state matches the file.
		p.entries = append([]string{entry}, p.entries...)
		return "", err
	}

	metrics.ReserveProxies.Set(float64(len(p.entries)))
	return entry, nil
}

func (p *FilePool) load() error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open reserve proxy file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read reserve proxy file: %w", err)
	}

	p.entries = entries
	p.loaded = true
	metrics.ReserveProxies.Set(float64(len(entries)))
	return nil
}

func (p *FilePool) flush() error {
	data := strings.Join(p.entries, "\n")
	if data != "" {
		data += "\n"
	}
	if err := os.WriteFile(p.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite reserve proxy file: %w", err)
	}
	return nil
}

// RedisPool is a reserve pool shared between instances through a Redis
// list. LPOP is atomic, so no extra locking is needed.
type RedisPool struct {
	client *redisclient.Client
	key    string
}

func NewRedisPool(client *redisclient.Client, key string) *RedisPool {
	return &RedisPool{client: client, key: key}
}

func (p *RedisPool) Acquire(ctx context.Context) (string, error) {
	entry, found, err := p.client.PopEntry(ctx, p.key)
	if err != nil {
		return "", fmt.Errorf("failed to pop reserve proxy: %w", err)
	}
	if !found {
		return "", domain.ErrReserveExhausted
	}

	if n, err := p.client.ListLen(ctx, p.key); err == nil {
		metrics.ReserveProxies.Set(float64(n))
	}
	return entry, nil
}
