package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/harvester/internal/control"
	"github.com/vietddude/harvester/internal/core/config"
)

var (
	cfgPath     string
	isDebug     bool
	eoaKeysPath string
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvester farming service",
	Long:  `Harvester orchestrates platform actions over a wallet pool: faucets, quizzes, swaps, staking, multisig flows and social tasks.`,
	Run:   runActivity,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, socialCmd, discordCmd, bindEOACmd, checkCmd)
	bindEOACmd.Flags().StringVar(&eoaKeysPath, "eoa-keys", "eoa_keys.txt", "file with one EOA private key per line")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the farming activity flow",
	Run:   runActivity,
}

var socialCmd = &cobra.Command{
	Use:   "social",
	Short: "Push social binds and claim social points",
	Run: func(cmd *cobra.Command, args []string) {
		runTask(func(ctx context.Context, f *control.Farmer) error {
			return f.RunSocial(ctx)
		}, nil)
	},
}

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Join the platform Discord for every wallet",
	Run: func(cmd *cobra.Command, args []string) {
		runTask(func(ctx context.Context, f *control.Farmer) error {
			return f.RunDiscord(ctx)
		}, nil)
	},
}

var bindEOACmd = &cobra.Command{
	Use:   "bind-eoa",
	Short: "Bind external EOAs to the pool's smart accounts",
	Run: func(cmd *cobra.Command, args []string) {
		keys, err := readLines(eoaKeysPath)
		if err != nil {
			stylelog.InitDefault()
			slog.Error("Failed to read EOA keys", "error", err)
			os.Exit(1)
		}
		runTask(func(ctx context.Context, f *control.Farmer) error {
			return f.RunBindEOA(ctx)
		}, keys)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check airdrop allocations for the wallet pool",
	Run: func(cmd *cobra.Command, args []string) {
		runTask(func(ctx context.Context, f *control.Farmer) error {
			return f.RunCheck(ctx)
		}, nil)
	},
}

func runActivity(cmd *cobra.Command, args []string) {
	runTask(func(ctx context.Context, f *control.Farmer) error {
		return f.RunActivity(ctx)
	}, nil)
}

// runTask loads config, wires the Farmer and runs one flow until it
// finishes or a signal arrives.
func runTask(task func(ctx context.Context, f *control.Farmer) error, eoaKeys []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewFarmer(ctx, cfg, eoaKeys)
	if err != nil {
		slog.Error("Failed to initialize Farmer", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start Farmer", "error", err)
		os.Exit(1)
	}

	slog.Info("Harvester started", "config", cfgPath)

	done := make(chan error, 1)
	go func() {
		done <- task(ctx, app)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
		<-done
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			slog.Error("Task failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
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
