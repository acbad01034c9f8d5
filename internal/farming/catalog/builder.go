package catalog

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/platform"
)

// Portal is the subset of the portal client the builder needs.
type Portal interface {
	Profile(ctx context.Context, wallet *domain.Wallet) (*platform.Profile, error)
	Faucet(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
}

// Chain is the subset of the chain client the builder needs.
type Chain interface {
	Balance(ctx context.Context, wallet *domain.Wallet) (*big.Int, error)
	Drip(ctx context.Context, wallet *domain.Wallet) (common.Hash, error)
}

// Store persists wallet state changed during a build.
type Store interface {
	Update(ctx context.Context, wallet *domain.Wallet) error
}

// Builder assembles the per-pass action catalog for one wallet. The catalog
// has three tiers: prerequisites first in fixed order, then independent
// actions in random order, then actions that depend on an earlier step.
type Builder struct {
	cfg    config.FarmConfig
	portal Portal
	chain  Chain
	store  Store
	now    func() time.Time
}

func NewBuilder(cfg config.FarmConfig, portal Portal, chain Chain, store Store) *Builder {
	return &Builder{
		cfg:    cfg,
		portal: portal,
		chain:  chain,
		store:  store,
		now:    time.Now,
	}
}

// Build returns the actions the wallet should run this pass. A wallet with
// zero balance is bootstrapped through a faucet first; if its balance stays
// zero the build aborts with ErrBootstrapFailed.
func (b *Builder) Build(ctx context.Context, wallet *domain.Wallet) ([]domain.Action, error) {
	bal, err := b.chain.Balance(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if bal.Sign() == 0 {
		if err := b.bootstrap(ctx, wallet); err != nil {
			return nil, err
		}
		bal, err = b.chain.Balance(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if bal.Sign() == 0 {
			return nil, domain.ErrBootstrapFailed
		}
	}

	profile, err := b.portal.Profile(ctx, wallet)
	if err != nil {
		return nil, err
	}
	now := b.now()

	// Tier 1: prerequisites, fixed order.
	var priority []domain.Action
	if !profile.OnboardingComplete {
		priority = append(priority, domain.Action{Kind: domain.ActionOnboard})
	}
	if wallet.TwitterToken != "" && !profile.TwitterLinked {
		priority = append(priority, domain.Action{Kind: domain.ActionBindTwitter})
	}

	// Tier 2: independent actions, shuffled.
	var middle []domain.Action
	if profile.FaucetClaimable {
		middle = append(middle, domain.Action{Kind: domain.ActionFaucet})
	}
	if !profile.DailyQuizComplete {
		middle = append(middle, domain.Action{Kind: domain.ActionDailyQuiz})
	}
	for _, badge := range profile.PendingBadges() {
		middle = append(middle, domain.Action{Kind: domain.ActionClaimBadge, BadgeID: badge.ID})
	}
	if domain.Eligible(now, wallet.NextFaucetAt) {
		middle = append(middle, domain.Action{Kind: domain.ActionOnChainFaucet})
	}
	if domain.Eligible(now, wallet.NextAIChatAt) {
		for i := 0; i < b.cfg.AIDialogs.Rand(); i++ {
			middle = append(middle, domain.Action{Kind: domain.ActionAIChat})
		}
	}
	for i := 0; i < b.cfg.Swaps.Rand(); i++ {
		middle = append(middle, domain.Action{Kind: domain.ActionSwap})
	}
	if !profile.BridgeUsed {
		middle = append(middle, domain.Action{Kind: domain.ActionBridge})
	}

	deposit := false
	if wallet.SmartAddress == "" {
		middle = append(middle, domain.Action{Kind: domain.ActionMultisigCreate})
	} else {
		middle = append(middle, domain.Action{Kind: domain.ActionMultisigDeposit})
		deposit = true
	}
	middle = append(middle, domain.Action{Kind: domain.ActionStake})
	if rand.Float64() < b.cfg.RewardChance {
		middle = append(middle, domain.Action{Kind: domain.ActionClaimRewards})
	}
	middle = append(middle, domain.Action{Kind: domain.ActionSocialGrab})

	rand.Shuffle(len(middle), func(i, j int) {
		middle[i], middle[j] = middle[j], middle[i]
	})

	// Tier 3: actions depending on an earlier step.
	var tail []domain.Action
	if deposit {
		tail = append(tail, domain.Action{Kind: domain.ActionMultisigWithdraw})
	}

	actions := make([]domain.Action, 0, len(priority)+len(middle)+len(tail))
	actions = append(actions, priority...)
	actions = append(actions, middle...)
	actions = append(actions, tail...)
	return actions, nil
}

// bootstrap funds a zero-balance wallet. Each attempt picks either the
// on-chain faucet or the captcha faucet at random; two failed attempts end
// the build. A successful drip starts the faucet cooldown so the same pass
// does not schedule a second claim.
func (b *Builder) bootstrap(ctx context.Context, wallet *domain.Wallet) error {
	const attempts = 2

	for i := 0; i < attempts; i++ {
		if domain.Eligible(b.now(), wallet.NextFaucetAt) && rand.Intn(2) == 0 {
			if _, err := b.chain.Drip(ctx, wallet); err == nil {
				next := b.now().Add(domain.FaucetCooldown)
				wallet.NextFaucetAt = &next
				if perr := b.store.Update(ctx, wallet); perr != nil {
					return fmt.Errorf("persist faucet cooldown: %w", perr)
				}
				return nil
			} else if domain.IsTransportFailure(err) {
				return err
			}
			continue
		}

		out, err := b.portal.Faucet(ctx, wallet)
		if err != nil {
			return err
		}
		if out.Status == domain.StatusOK {
			return nil
		}
	}
	return domain.ErrBootstrapFailed
}
