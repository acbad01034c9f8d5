package tasks

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/farming/catalog"
	"github.com/vietddude/harvester/internal/farming/runner"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/platform"
)

// Portal is the portal client surface the controller needs.
type Portal interface {
	Profile(ctx context.Context, wallet *domain.Wallet) (*platform.Profile, error)
	Onboard(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	DailyQuiz(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	Faucet(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	AgentChat(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	ClaimBadge(ctx context.Context, wallet *domain.Wallet, badgeID int64) (domain.Outcome, error)
	ClaimRewards(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	SocialGrab(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	BindTwitter(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	JoinDiscord(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
	BindEOA(ctx context.Context, wallet *domain.Wallet, eoaKey string) (domain.Outcome, error)
	CheckAirdrop(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error)
}

// Chain is the chain client surface the controller needs.
type Chain interface {
	Balance(ctx context.Context, wallet *domain.Wallet) (*big.Int, error)
	Drip(ctx context.Context, wallet *domain.Wallet) (common.Hash, error)
	Swap(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error)
	Bridge(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error)
	MultisigCreate(ctx context.Context, wallet *domain.Wallet) (common.Hash, error)
	MultisigDeposit(ctx context.Context, wallet *domain.Wallet, safe string, percent int) (common.Hash, error)
	MultisigWithdraw(ctx context.Context, wallet *domain.Wallet, safe string) (common.Hash, error)
	Stake(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error)
}

// Failover swaps a wallet's proxy for a reserve one.
type Failover interface {
	Failover(ctx context.Context, wallet *domain.Wallet) (string, error)
}

// Builder assembles per-pass action catalogs.
type Builder interface {
	Build(ctx context.Context, wallet *domain.Wallet) ([]domain.Action, error)
}

// Runner executes an action catalog.
type Runner interface {
	Run(ctx context.Context, wallet *domain.Wallet, actions []domain.Action) error
}

// Controller owns per-wallet task flows and dispatches individual actions.
type Controller struct {
	cfg      config.FarmConfig
	portal   Portal
	chain    Chain
	wallets  storage.WalletRepository
	failover Failover
	builder  Builder
	runner   Runner
	eoaKeys  []string
	now      func() time.Time
}

func NewController(
	cfg config.FarmConfig,
	portal Portal,
	chain Chain,
	wallets storage.WalletRepository,
	failover Failover,
	eoaKeys []string,
) *Controller {
	c := &Controller{
		cfg:      cfg,
		portal:   portal,
		chain:    chain,
		wallets:  wallets,
		failover: failover,
		eoaKeys:  eoaKeys,
		now:      time.Now,
	}
	c.builder = catalog.NewBuilder(cfg, portal, chain, wallets)
	c.runner = runner.NewRunner(c, cfg.ActionPause)
	return c
}

// Execute dispatches one action to the right collaborator. This is the
// runner's executor.
func (c *Controller) Execute(
	ctx context.Context,
	wallet *domain.Wallet,
	action domain.Action,
) (domain.Outcome, error) {
	switch action.Kind {
	case domain.ActionOnboard:
		return c.portal.Onboard(ctx, wallet)
	case domain.ActionBindTwitter:
		return c.portal.BindTwitter(ctx, wallet)
	case domain.ActionDailyQuiz:
		return c.portal.DailyQuiz(ctx, wallet)
	case domain.ActionFaucet:
		return c.portal.Faucet(ctx, wallet)
	case domain.ActionClaimBadge:
		return c.portal.ClaimBadge(ctx, wallet, action.BadgeID)
	case domain.ActionAIChat:
		return c.portal.AgentChat(ctx, wallet)
	case domain.ActionClaimRewards:
		return c.portal.ClaimRewards(ctx, wallet)
	case domain.ActionSocialGrab:
		return c.portal.SocialGrab(ctx, wallet)

	case domain.ActionOnChainFaucet:
		hash, err := c.chain.Drip(ctx, wallet)
		if err != nil {
			if !domain.IsTransportFailure(err) && isCooldownRevert(err) {
				next := c.now().Add(domain.FaucetCooldown)
				wallet.NextFaucetAt = &next
				if perr := c.wallets.Update(ctx, wallet); perr != nil {
					return domain.Outcome{}, fmt.Errorf("persist faucet cooldown: %w", perr)
				}
				return domain.RateLimited(err.Error()), nil
			}
			return c.txOutcome(common.Hash{}, err, "")
		}
		next := c.now().Add(domain.FaucetCooldown)
		wallet.NextFaucetAt = &next
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist faucet cooldown: %w", perr)
		}
		return c.txOutcome(hash, nil, "faucet drip")

	case domain.ActionSwap:
		hash, err := c.chain.Swap(ctx, wallet, c.cfg.SwapPercent.Rand())
		return c.txOutcome(hash, err, "swap")
	case domain.ActionBridge:
		hash, err := c.chain.Bridge(ctx, wallet, c.cfg.SwapPercent.Rand())
		return c.txOutcome(hash, err, "bridge")
	case domain.ActionMultisigCreate:
		hash, err := c.chain.MultisigCreate(ctx, wallet)
		return c.txOutcome(hash, err, "multisig create")
	case domain.ActionMultisigDeposit:
		hash, err := c.chain.MultisigDeposit(ctx, wallet, wallet.SmartAddress, c.cfg.SwapPercent.Rand())
		return c.txOutcome(hash, err, "multisig deposit")
	case domain.ActionMultisigWithdraw:
		hash, err := c.chain.MultisigWithdraw(ctx, wallet, wallet.SmartAddress)
		return c.txOutcome(hash, err, "multisig withdraw")
	case domain.ActionStake:
		hash, err := c.chain.Stake(ctx, wallet, c.cfg.SwapPercent.Rand())
		return c.txOutcome(hash, err, "stake")
	}
	return domain.Failed(fmt.Sprintf("unknown action %v", action.Kind)), nil
}

// txOutcome folds a broadcast result into a structured outcome. Transport
// errors bubble up so the task layer can rotate the proxy.
func (c *Controller) txOutcome(hash common.Hash, err error, desc string) (domain.Outcome, error) {
	if err != nil {
		if domain.IsTransportFailure(err) {
			return domain.Outcome{}, err
		}
		return domain.Failed(err.Error()), nil
	}
	return domain.OK(fmt.Sprintf("%s tx %s", desc, hash.Hex())), nil
}

var cooldownRevertMarkers = []string{
	"cooldown",
	"rate limit",
	"too many requests",
	"already claimed",
}

// isCooldownRevert reports whether a drip failure is the faucet contract
// refusing a claim inside its cooldown window.
func isCooldownRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range cooldownRevertMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
