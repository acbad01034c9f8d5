package platform

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/chain/evm"
)

var chatPrompts = []string{
	"What is the fastest way to bridge assets to this network?",
	"Explain how gas fees work on this testnet.",
	"Which dapps on this network support stablecoin swaps?",
	"How do I track my staking rewards?",
	"What are smart accounts and why would I use one?",
	"Summarize the latest network upgrade.",
}

// outcome converts a request error into a structured result. Rate limits
// become soft failures, transport errors bubble up for failover, anything
// else is a hard failure for this pass.
func outcome(err error, success string) (domain.Outcome, error) {
	if err == nil {
		return domain.OK(success), nil
	}
	var rl *rateLimitError
	if errors.As(err, &rl) {
		return domain.RateLimited(rl.msg), nil
	}
	if domain.IsTransportFailure(err) {
		return domain.Outcome{}, err
	}
	return domain.Failed(err.Error()), nil
}

// Profile fetches the portal-side state of a wallet.
func (c *Client) Profile(ctx context.Context, wallet *domain.Wallet) (*Profile, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return nil, err
	}

	var profile Profile
	if err := c.doJSON(ctx, wallet, http.MethodGet, "/user/profile", nil, &profile); err != nil {
		return nil, err
	}
	if profile.SmartAddress != "" && profile.SmartAddress != wallet.SmartAddress {
		wallet.SmartAddress = profile.SmartAddress
		if err := c.wallets.Update(ctx, wallet); err != nil {
			return nil, fmt.Errorf("persist smart address: %w", err)
		}
	}
	return &profile, nil
}

// Onboard completes the initial onboarding checklist.
func (c *Client) Onboard(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/onboarding/complete", nil, nil)
	return outcome(err, "onboarding complete")
}

// DailyQuiz answers the daily quiz.
func (c *Client) DailyQuiz(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/quiz/daily", nil, nil)
	return outcome(err, "daily quiz done")
}

// Faucet claims the captcha-gated faucet. A claim or a 429 both push the
// faucet cooldown forward.
func (c *Client) Faucet(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	req := map[string]string{
		"address": wallet.Address,
		"captcha": c.cfg.CaptchaKey,
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/faucet/claim", req, nil)
	out, err := outcome(err, "faucet claimed")
	if err != nil {
		return domain.Outcome{}, err
	}

	if out.Status == domain.StatusOK || out.Status == domain.StatusRateLimited {
		next := time.Now().Add(domain.FaucetCooldown)
		wallet.NextFaucetAt = &next
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist faucet cooldown: %w", perr)
		}
	}
	return out, nil
}

// AgentChat sends one message to the platform AI agent. Rate limits and
// successful chats both push the chat cooldown forward.
func (c *Client) AgentChat(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	req := map[string]string{
		"message": chatPrompts[rand.Intn(len(chatPrompts))],
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/agent/chat", req, nil)
	out, err := outcome(err, "agent chat done")
	if err != nil {
		return domain.Outcome{}, err
	}

	if out.Status == domain.StatusOK || out.Status == domain.StatusRateLimited {
		next := time.Now().Add(domain.FaucetCooldown)
		wallet.NextAIChatAt = &next
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist chat cooldown: %w", perr)
		}
	}
	return out, nil
}

// ClaimBadge mints one achievement badge.
func (c *Client) ClaimBadge(ctx context.Context, wallet *domain.Wallet, badgeID int64) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}
	path := fmt.Sprintf("/badges/%d/mint", badgeID)
	err := c.doJSON(ctx, wallet, http.MethodPost, path, nil, nil)
	return outcome(err, fmt.Sprintf("badge %d minted", badgeID))
}

// ClaimRewards claims accrued staking rewards.
func (c *Client) ClaimRewards(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/staking/claim", nil, nil)
	return outcome(err, "rewards claimed")
}

// SocialGrab claims any social points the portal has pending for the wallet.
func (c *Client) SocialGrab(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/social/points/claim", nil, nil)
	return outcome(err, "social points claimed")
}

// BindTwitter links the wallet's Twitter account.
func (c *Client) BindTwitter(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if wallet.TwitterToken == "" {
		return domain.Failed("no twitter token"), nil
	}
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	req := map[string]string{"token": wallet.TwitterToken}
	err := c.doJSON(ctx, wallet, http.MethodPost, "/social/twitter/bind", req, nil)
	out, err := outcome(err, "twitter bound")
	if err != nil {
		return domain.Outcome{}, err
	}

	if out.Status == domain.StatusOK {
		wallet.TwitterStatus = domain.SocialVerified
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist twitter status: %w", perr)
		}
	}
	return out, nil
}

// JoinDiscord joins the platform Discord and verifies membership. The request
// goes out through the wallet's Discord proxy when one is assigned, so the
// join traffic never shares an exit IP with the portal session.
func (c *Client) JoinDiscord(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if wallet.DiscordToken == "" {
		return domain.Failed("no discord token"), nil
	}
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	proxy := wallet.Proxy
	if wallet.DiscordProxy != "" {
		proxy = wallet.DiscordProxy
	}
	req := map[string]string{"token": wallet.DiscordToken}
	err := c.doJSONVia(ctx, wallet, proxy, http.MethodPost, "/social/discord/join", req, nil)
	out, err := outcome(err, "discord joined")
	if err != nil {
		return domain.Outcome{}, err
	}

	if out.Status == domain.StatusOK {
		wallet.DiscordStatus = domain.SocialVerified
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist discord status: %w", perr)
		}
	}
	return out, nil
}

// BindEOA links an external EOA to the wallet's smart account. The portal
// requires the EOA itself to sign the binding message.
func (c *Client) BindEOA(ctx context.Context, wallet *domain.Wallet, eoaKey string) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	var current struct {
		Address string `json:"address"`
	}
	if err := c.doJSON(ctx, wallet, http.MethodGet, "/user/eoa", nil, &current); err != nil {
		return outcome(err, "")
	}
	if current.Address != "" {
		wallet.BoundEOA = current.Address
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist bound eoa: %w", perr)
		}
		return domain.OK("eoa already bound"), nil
	}

	sig, err := signMessage(eoaKey, wallet.Address)
	if err != nil {
		return domain.Outcome{}, err
	}
	req := map[string]string{"signature": sig}
	berr := c.doJSON(ctx, wallet, http.MethodPost, "/user/eoa/bind", req, nil)
	out, berr := outcome(berr, "eoa bound")
	if berr != nil {
		return domain.Outcome{}, berr
	}

	if out.Status == domain.StatusOK {
		addr, aerr := evm.AddressFromKey(eoaKey)
		if aerr != nil {
			return domain.Outcome{}, aerr
		}
		wallet.BoundEOA = addr
		if perr := c.wallets.Update(ctx, wallet); perr != nil {
			return domain.Outcome{}, fmt.Errorf("persist bound eoa: %w", perr)
		}
	}
	return out, nil
}

// CheckAirdrop fetches the wallet's airdrop allocation and stores it.
func (c *Client) CheckAirdrop(ctx context.Context, wallet *domain.Wallet) (domain.Outcome, error) {
	if err := c.ensureAuth(ctx, wallet); err != nil {
		return domain.Outcome{}, err
	}

	var alloc struct {
		Eligible bool    `json:"eligible"`
		Amount   float64 `json:"amount"`
	}
	err := c.doJSON(ctx, wallet, http.MethodGet, "/airdrop/allocation", nil, &alloc)
	out, err := outcome(err, "")
	if err != nil {
		return domain.Outcome{}, err
	}
	if out.Status != domain.StatusOK {
		return out, nil
	}

	wallet.AirdropEligible = alloc.Eligible
	wallet.AirdropAmount = alloc.Amount
	if perr := c.wallets.Update(ctx, wallet); perr != nil {
		return domain.Outcome{}, fmt.Errorf("persist airdrop allocation: %w", perr)
	}
	return domain.OK(fmt.Sprintf("airdrop eligible=%v amount=%.2f", alloc.Eligible, alloc.Amount)), nil
}
