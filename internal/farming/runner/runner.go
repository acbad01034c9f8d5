package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/observability/metrics"
)

// Executor runs one action for one wallet.
type Executor interface {
	Execute(ctx context.Context, wallet *domain.Wallet, action domain.Action) (domain.Outcome, error)
}

// Runner walks a wallet's action catalog in order. Outcomes are classified
// and logged, transport failures are surfaced for failover, and a pacing
// sleep runs after every action no matter how it ended.
type Runner struct {
	exec  Executor
	pause config.Range
}

func NewRunner(exec Executor, pause config.Range) *Runner {
	return &Runner{exec: exec, pause: pause}
}

// Run executes the actions sequentially. A stop sentinel from the executor
// ends the wallet early and counts as success.
func (r *Runner) Run(ctx context.Context, wallet *domain.Wallet, actions []domain.Action) error {
	for _, action := range actions {
		out, err := r.exec.Execute(ctx, wallet, action)

		var surface error
		stop := false

		switch {
		case err == nil:
			metrics.ActionsTotal.WithLabelValues(action.Kind.String(), out.Status.String()).Inc()
			switch out.Status {
			case domain.StatusOK:
				slog.Info("Action done",
					"wallet", wallet.Short(), "action", action.Kind.String(), "msg", out.Message)
			case domain.StatusRateLimited:
				slog.Warn("Action rate limited",
					"wallet", wallet.Short(), "action", action.Kind.String(), "msg", out.Message)
			default:
				slog.Error("Action failed",
					"wallet", wallet.Short(), "action", action.Kind.String(), "msg", out.Message)
			}

		case errors.Is(err, domain.ErrStopWallet):
			slog.Info("Wallet sequence stopped early",
				"wallet", wallet.Short(), "action", action.Kind.String())
			stop = true

		case ctx.Err() != nil:
			return ctx.Err()

		case domain.IsTransportFailure(err):
			slog.Warn("Transport failure",
				"wallet", wallet.Short(), "action", action.Kind.String(), "error", err)
			surface = err

		default:
			metrics.ActionsTotal.WithLabelValues(action.Kind.String(), domain.StatusFailed.String()).Inc()
			slog.Error("Action error",
				"wallet", wallet.Short(), "action", action.Kind.String(), "error", err)
		}

		// Pacing runs after every action, whatever happened to it.
		if perr := r.pace(ctx); perr != nil {
			return perr
		}
		if surface != nil {
			return surface
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (r *Runner) pace(ctx context.Context) error {
	d := r.pause.RandDuration(time.Second)
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
