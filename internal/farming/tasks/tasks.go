package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/observability/metrics"
)

// maxFailovers bounds how many times one task restarts after swapping the
// wallet's proxy.
const maxFailovers = 3

// RandomActivity is the main farming task: build the wallet's catalog, run
// it, then refresh the wallet's portal stats.
func (c *Controller) RandomActivity(ctx context.Context, wallet *domain.Wallet) error {
	if err := c.delayStart(ctx); err != nil {
		return err
	}

	err := c.withFailover(ctx, wallet, func(ctx context.Context) error {
		actions, err := c.builder.Build(ctx, wallet)
		if err != nil {
			return err
		}
		slog.Info("Catalog built", "wallet", wallet.Short(), "actions", len(actions))
		return c.runner.Run(ctx, wallet, actions)
	})
	if err != nil {
		metrics.WalletTasksTotal.WithLabelValues("activity", "error").Inc()
		return err
	}

	if err := c.syncProfile(ctx, wallet); err != nil {
		slog.Warn("Profile sync failed", "wallet", wallet.Short(), "error", err)
	}
	metrics.WalletTasksTotal.WithLabelValues("activity", "ok").Inc()
	return nil
}

// JoinDiscord joins and verifies the platform Discord for one wallet.
func (c *Controller) JoinDiscord(ctx context.Context, wallet *domain.Wallet) error {
	if err := c.delayStart(ctx); err != nil {
		return err
	}
	return c.runSimple(ctx, wallet, "discord", func(ctx context.Context) (domain.Outcome, error) {
		return c.portal.JoinDiscord(ctx, wallet)
	})
}

// PushSocialTasks links pending social accounts and claims social points.
func (c *Controller) PushSocialTasks(ctx context.Context, wallet *domain.Wallet) error {
	if err := c.delayStart(ctx); err != nil {
		return err
	}
	return c.withFailover(ctx, wallet, func(ctx context.Context) error {
		if wallet.TwitterToken != "" && wallet.TwitterStatus != domain.SocialVerified {
			out, err := c.portal.BindTwitter(ctx, wallet)
			if err != nil {
				return err
			}
			slog.Info("Twitter bind", "wallet", wallet.Short(), "status", out.Status.String(), "msg", out.Message)
		}

		out, err := c.portal.SocialGrab(ctx, wallet)
		if err != nil {
			return err
		}
		slog.Info("Social points", "wallet", wallet.Short(), "status", out.Status.String(), "msg", out.Message)
		metrics.WalletTasksTotal.WithLabelValues("social", out.Status.String()).Inc()
		return nil
	})
}

// BindEOA links an external EOA to the wallet's smart account. EOA keys are
// paired with wallets by position.
func (c *Controller) BindEOA(ctx context.Context, wallet *domain.Wallet) error {
	if len(c.eoaKeys) == 0 {
		return fmt.Errorf("no EOA keys configured")
	}
	if err := c.delayStart(ctx); err != nil {
		return err
	}

	idx := int(wallet.ID-1) % len(c.eoaKeys)
	if idx < 0 {
		idx += len(c.eoaKeys)
	}
	key := c.eoaKeys[idx]
	return c.runSimple(ctx, wallet, "bind_eoa", func(ctx context.Context) (domain.Outcome, error) {
		return c.portal.BindEOA(ctx, wallet, key)
	})
}

// Checker fetches and stores the wallet's airdrop allocation.
func (c *Controller) Checker(ctx context.Context, wallet *domain.Wallet) error {
	return c.runSimple(ctx, wallet, "check", func(ctx context.Context) (domain.Outcome, error) {
		return c.portal.CheckAirdrop(ctx, wallet)
	})
}

func (c *Controller) runSimple(
	ctx context.Context,
	wallet *domain.Wallet,
	name string,
	fn func(ctx context.Context) (domain.Outcome, error),
) error {
	return c.withFailover(ctx, wallet, func(ctx context.Context) error {
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		metrics.WalletTasksTotal.WithLabelValues(name, out.Status.String()).Inc()
		if out.Status == domain.StatusFailed {
			slog.Error("Task failed", "wallet", wallet.Short(), "task", name, "msg", out.Message)
		} else {
			slog.Info("Task done", "wallet", wallet.Short(), "task", name, "msg", out.Message)
		}
		return nil
	})
}

// withFailover reruns fn after swapping the wallet's proxy when it dies on
// a transport failure. Restarts are capped, and an exhausted reserve pool
// ends the wallet for this pass.
func (c *Controller) withFailover(
	ctx context.Context,
	wallet *domain.Wallet,
	fn func(ctx context.Context) error,
) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || ctx.Err() != nil || !domain.IsTransportFailure(err) {
			return err
		}
		if attempt >= maxFailovers {
			return fmt.Errorf("giving up after %d proxy failovers: %w", maxFailovers, err)
		}
		if _, ferr := c.failover.Failover(ctx, wallet); ferr != nil {
			return fmt.Errorf("proxy failover: %w", ferr)
		}
	}
}

// syncProfile refreshes points, rank and invite code after a pass.
func (c *Controller) syncProfile(ctx context.Context, wallet *domain.Wallet) error {
	profile, err := c.portal.Profile(ctx, wallet)
	if err != nil {
		return err
	}

	wallet.Points = profile.TotalPoints
	wallet.Rank = profile.Rank
	if profile.InviteCode != "" {
		wallet.InviteCode = profile.InviteCode
	}
	if err := c.wallets.Update(ctx, wallet); err != nil {
		return fmt.Errorf("persist profile stats: %w", err)
	}

	metrics.WalletPoints.WithLabelValues(wallet.Short()).Set(float64(wallet.Points))
	return nil
}

// delayStart sleeps a random interval so wallets don't all hit the platform
// at the same instant.
func (c *Controller) delayStart(ctx context.Context) error {
	d := c.cfg.StartDelay.RandDuration(time.Second)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
