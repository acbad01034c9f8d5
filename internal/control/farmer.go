package control

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/core/worker"
	"github.com/vietddude/harvester/internal/farming/scheduler"
	"github.com/vietddude/harvester/internal/farming/tasks"
	"github.com/vietddude/harvester/internal/infra/chain/evm"
	"github.com/vietddude/harvester/internal/infra/proxy"
	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/infra/storage/memory"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
	"github.com/vietddude/harvester/internal/observability/metrics"
	"github.com/vietddude/harvester/internal/platform"
)

// Farmer wires the whole application together and manages its lifecycle.
type Farmer struct {
	cfg *config.AppConfig

	db          *postgres.DB
	redisClient *redisclient.Client
	wallets     storage.WalletRepository
	chain       *evm.Client
	controller  *tasks.Controller
	sched       *scheduler.Scheduler

	metricsServer *metrics.Server
	pointsWorker  *worker.PointsWorker
	workerCancel  context.CancelFunc
}

// NewFarmer creates a Farmer with all dependencies initialized.
func NewFarmer(ctx context.Context, cfg *config.AppConfig, eoaKeys []string) (*Farmer, error) {
	f := &Farmer{cfg: cfg}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		f.db = db
		f.wallets = postgres.NewWalletRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		f.wallets = memory.NewWalletRepo(memory.NewMemoryStorage())
		slog.Info("Using Memory storage")
	}

	// 2. Reserve proxy pool
	var pool proxy.ReservePool
	if cfg.Proxy.RedisKey != "" && cfg.Redis.URL != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		f.redisClient = redisClient
		pool = proxy.NewRedisPool(redisClient, cfg.Proxy.RedisKey)
		slog.Info("Using Redis reserve proxy pool", "key", cfg.Proxy.RedisKey)
	} else {
		pool = proxy.NewFilePool(cfg.Proxy.ReserveFile)
		slog.Info("Using file reserve proxy pool", "path", cfg.Proxy.ReserveFile)
	}

	// 3. Chain and portal clients
	chainClient, err := evm.NewClient(ctx, cfg.Chain)
	if err != nil {
		return nil, fmt.Errorf("failed to init chain client: %w", err)
	}
	f.chain = chainClient

	portalClient := platform.NewClient(cfg.Portal, f.wallets)

	// 4. Orchestration
	failover := proxy.NewManager(pool, f.wallets)
	f.controller = tasks.NewController(cfg.Farm, portalClient, chainClient, f.wallets, failover, eoaKeys)
	f.sched = scheduler.New(cfg.Farm)

	f.metricsServer = metrics.NewServer(cfg.Server.Port)
	f.pointsWorker = worker.NewPointsWorker(f.wallets, portalClient, 30*time.Minute)

	return f, nil
}

// Start launches the background pieces: metrics server, DB metrics
// collection, points refresh.
func (f *Farmer) Start(ctx context.Context) error {
	go func() {
		if err := f.metricsServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	workerCtx, cancel := context.WithCancel(ctx)
	f.workerCancel = cancel
	if f.db != nil {
		f.db.StartMetricsCollector(workerCtx)
	}
	go f.pointsWorker.Start(workerCtx)

	slog.Info("Farmer started", "port", f.cfg.Server.Port)
	return nil
}

// Stop shuts down the background pieces and closes connections.
func (f *Farmer) Stop(ctx context.Context) error {
	if f.workerCancel != nil {
		f.workerCancel()
	}
	if err := f.metricsServer.Stop(ctx); err != nil {
		slog.Warn("Metrics server shutdown failed", "error", err)
	}
	if f.chain != nil {
		f.chain.Close()
	}
	if f.redisClient != nil {
		_ = f.redisClient.Close()
	}
	if f.db != nil {
		_ = f.db.Close()
	}
	slog.Info("Farmer stopped")
	return nil
}

// Wallets loads the wallet pool and applies the configured filters.
func (f *Farmer) Wallets(ctx context.Context) ([]*domain.Wallet, error) {
	wallets, err := f.wallets.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	filtered := filterWallets(wallets, f.cfg.Farm)
	slog.Info("Loaded wallets", "total", len(wallets), "selected", len(filtered))
	return filtered, nil
}

// filterWallets applies the exact-index and index-range selection from
// config. Indexes are 1-based positions in the loaded pool, not database
// ids, so a pool with deleted rows still selects by list order. An exact
// list wins over a range.
func filterWallets(wallets []*domain.Wallet, cfg config.FarmConfig) []*domain.Wallet {
	if len(cfg.ExactIDs) > 0 {
		keep := make(map[int64]bool, len(cfg.ExactIDs))
		for _, idx := range cfg.ExactIDs {
			keep[idx] = true
		}
		var out []*domain.Wallet
		for i, w := range wallets {
			if keep[int64(i+1)] {
				out = append(out, w)
			}
		}
		return out
	}

	if !cfg.WalletRange.IsZero() {
		var out []*domain.Wallet
		for i, w := range wallets {
			pos := i + 1
			if pos >= cfg.WalletRange.Min && pos <= cfg.WalletRange.Max {
				out = append(out, w)
			}
		}
		return out
	}
	return wallets
}

// RunActivity runs the main farming flow over the wallet pool.
func (f *Farmer) RunActivity(ctx context.Context) error {
	wallets, err := f.Wallets(ctx)
	if err != nil {
		return err
	}
	return f.sched.Execute(ctx, wallets, f.controller.RandomActivity, f.cfg.Farm.Repeat, f.cfg.Farm.PassPause)
}

// RunSocial pushes social binds and point claims over the wallet pool.
func (f *Farmer) RunSocial(ctx context.Context) error {
	wallets, err := f.Wallets(ctx)
	if err != nil {
		return err
	}
	return f.sched.Execute(ctx, wallets, f.controller.PushSocialTasks, false, config.Range{})
}

// RunDiscord joins the platform Discord for every wallet with a token.
// Wallets without a token are skipped; the Discord proxy file is dealt out
// round-robin over the rest and persisted before the joins start.
func (f *Farmer) RunDiscord(ctx context.Context) error {
	wallets, err := f.Wallets(ctx)
	if err != nil {
		return err
	}

	var proxies []string
	if f.cfg.Proxy.DiscordFile != "" {
		proxies, err = readLines(f.cfg.Proxy.DiscordFile)
		if err != nil {
			return fmt.Errorf("failed to load discord proxies: %w", err)
		}
	}

	pool := discordPool(wallets, proxies)
	if len(pool) == 0 {
		slog.Info("No wallets with a Discord token")
		return nil
	}
	for _, w := range pool {
		if err := f.wallets.Update(ctx, w); err != nil {
			return fmt.Errorf("failed to persist discord proxy: %w", err)
		}
	}
	slog.Info("Discord pool ready", "wallets", len(pool), "proxies", len(proxies))

	return f.sched.Execute(ctx, pool, f.controller.JoinDiscord, false, config.Range{})
}

// discordPool filters the pool to wallets holding a Discord token and deals
// the proxies out round-robin. With no proxies the wallets keep whatever
// Discord proxy they already have.
func discordPool(wallets []*domain.Wallet, proxies []string) []*domain.Wallet {
	var out []*domain.Wallet
	for _, w := range wallets {
		if w.DiscordToken == "" {
			continue
		}
		if len(proxies) > 0 {
			w.DiscordProxy = proxies[len(out)%len(proxies)]
		}
		out = append(out, w)
	}
	return out
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// RunBindEOA binds external EOAs to the pool's smart accounts.
func (f *Farmer) RunBindEOA(ctx context.Context) error {
	wallets, err := f.Wallets(ctx)
	if err != nil {
		return err
	}
	return f.sched.Execute(ctx, wallets, f.controller.BindEOA, false, config.Range{})
}

// RunCheck fetches airdrop allocations for the pool and prints a summary.
func (f *Farmer) RunCheck(ctx context.Context) error {
	wallets, err := f.Wallets(ctx)
	if err != nil {
		return err
	}
	if err := f.sched.Execute(ctx, wallets, f.controller.Checker, false, config.Range{}); err != nil {
		return err
	}

	eligible := 0
	total := 0.0
	refreshed, err := f.wallets.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, w := range refreshed {
		if w.AirdropEligible {
			eligible++
			total += w.AirdropAmount
		}
	}
	slog.Info("Airdrop check finished", "eligible", eligible, "wallets", len(refreshed), "total", total)
	return nil
}
