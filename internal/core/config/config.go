package config

import (
	"math/rand"
	"time"

	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Chain    ChainConfig        `yaml:"chain"`
	Portal   PortalConfig       `yaml:"portal"`
	Proxy    ProxyConfig        `yaml:"proxy"`
	Farm     FarmConfig         `yaml:"farm"`
}

// ServerConfig holds HTTP server settings (metrics endpoint).
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig holds testnet RPC settings.
type ChainConfig struct {
	RPCURL      string        `yaml:"rpc_url"`
	ChainID     int64         `yaml:"chain_id"`
	ExplorerURL string        `yaml:"explorer_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PortalConfig holds platform API settings.
type PortalConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	CaptchaKey string        `yaml:"captcha_key"`
	InviteCode string        `yaml:"invite_code"`
}

// ProxyConfig holds reserve proxy pool settings. When RedisKey is set the
// pool is shared through Redis, otherwise ReserveFile is used locally.
// DiscordFile lists proxies handed out round-robin to wallets with Discord
// tokens before the join flow.
type ProxyConfig struct {
	ReserveFile string `yaml:"reserve_file"`
	RedisKey    string `yaml:"redis_key"`
	DiscordFile string `yaml:"discord_file"`
}

// FarmConfig holds orchestration settings for farming passes.
type FarmConfig struct {
	Threads      int     `yaml:"threads"`
	Shuffle      bool    `yaml:"shuffle"`
	Repeat       bool    `yaml:"repeat"`
	StartDelay   Range   `yaml:"start_delay"`   // seconds, per wallet before first action
	ActionPause  Range   `yaml:"action_pause"`  // seconds, between actions
	PassPause    Range   `yaml:"pass_pause"`    // minutes, between repeated passes
	Swaps        Range   `yaml:"swaps"`         // swaps per pass
	AIDialogs    Range   `yaml:"ai_dialogs"`    // AI chats per pass
	SwapPercent  Range   `yaml:"swap_percent"`  // percent of balance per swap
	RewardChance float64 `yaml:"reward_chance"` // probability of a claim-rewards step
	WalletRange  Range   `yaml:"wallet_range"`  // 1-based position range filter, zero = all
	ExactIDs     []int64 `yaml:"exact_ids"`     // exact 1-based position filter, wins over range
}

// Range is an inclusive [Min, Max] integer interval.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Rand returns a uniform random value in [Min, Max].
func (r Range) Rand() int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.Intn(r.Max-r.Min+1)
}

// RandDuration returns a uniform random duration in [Min, Max] units.
func (r Range) RandDuration(unit time.Duration) time.Duration {
	return time.Duration(r.Rand()) * unit
}

// IsZero reports whether the range was left unset.
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}
