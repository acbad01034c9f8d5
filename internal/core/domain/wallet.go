package domain

import (
	"fmt"
	"time"
)

// SocialStatus tracks progress of linking a social account to a wallet.
type SocialStatus string

const (
	SocialNone     SocialStatus = ""
	SocialPending  SocialStatus = "pending"
	SocialVerified SocialStatus = "verified"
	SocialBanned   SocialStatus = "banned"
)

// Wallet is a farmed account: an EVM key plus its platform-side state.
type Wallet struct {
	ID           int64  `db:"id"`
	PrivateKey   string `db:"private_key"`
	Address      string `db:"address"`
	SmartAddress string `db:"smart_address"`
	Proxy        string `db:"proxy"`

	AuthToken  string `db:"auth_token"`
	InviteCode string `db:"invite_code"`
	Points     int64  `db:"points"`
	Rank       int64  `db:"rank"`

	BoundEOA      string       `db:"bound_eoa"`
	TwitterToken  string       `db:"twitter_token"`
	TwitterStatus SocialStatus `db:"twitter_status"`
	DiscordToken  string       `db:"discord_token"`
	DiscordProxy  string       `db:"discord_proxy"`
	DiscordStatus SocialStatus `db:"discord_status"`

	NextFaucetAt *time.Time `db:"next_faucet_at"`
	NextAIChatAt *time.Time `db:"next_ai_chat_at"`

	AirdropEligible bool    `db:"airdrop_eligible"`
	AirdropAmount   float64 `db:"airdrop_amount"`
	Completed       bool    `db:"completed"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FaucetCooldown is how long the platform locks a wallet out of the faucet
// and the AI agent after a claim or a rate-limit response.
const FaucetCooldown = 24*time.Hour + time.Minute

// Short returns a compact identifier for logs.
func (w *Wallet) Short() string {
	addr := w.Address
	if len(addr) > 10 {
		addr = addr[:10]
	}
	return fmt.Sprintf("%d|%s", w.ID, addr)
}

// Eligible reports whether an action gated by a cooldown threshold may run.
// A nil threshold means the action was never attempted, so it may run now.
func Eligible(now time.Time, threshold *time.Time) bool {
	if threshold == nil {
		return true
	}
	return !threshold.After(now)
}
