package domain

// ActionKind identifies one platform action a wallet can perform.
type ActionKind int

const (
	ActionOnboard ActionKind = iota
	ActionBindTwitter
	ActionDailyQuiz
	ActionFaucet
	ActionOnChainFaucet
	ActionClaimBadge
	ActionAIChat
	ActionSwap
	ActionBridge
	ActionMultisigCreate
	ActionMultisigDeposit
	ActionMultisigWithdraw
	ActionStake
	ActionClaimRewards
	ActionSocialGrab
)

var actionNames = map[ActionKind]string{
	ActionOnboard:          "onboard",
	ActionBindTwitter:      "bind_twitter",
	ActionDailyQuiz:        "daily_quiz",
	ActionFaucet:           "faucet",
	ActionOnChainFaucet:    "onchain_faucet",
	ActionClaimBadge:       "claim_badge",
	ActionAIChat:           "ai_chat",
	ActionSwap:             "swap",
	ActionBridge:           "bridge",
	ActionMultisigCreate:   "multisig_create",
	ActionMultisigDeposit:  "multisig_deposit",
	ActionMultisigWithdraw: "multisig_withdraw",
	ActionStake:            "stake",
	ActionClaimRewards:     "claim_rewards",
	ActionSocialGrab:       "social_grab",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is a single scheduled step for one wallet. BadgeID is only set
// for ActionClaimBadge.
type Action struct {
	Kind    ActionKind
	BadgeID int64
}
