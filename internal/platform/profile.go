package platform

// Badge is one mintable achievement badge.
type Badge struct {
	ID       int64 `json:"id"`
	Eligible bool  `json:"eligible"`
	Minted   bool  `json:"minted"`
}

// Profile is the portal-side state of a wallet.
type Profile struct {
	SmartAddress       string  `json:"smart_address"`
	OnboardingComplete bool    `json:"onboarding_complete"`
	DailyQuizComplete  bool    `json:"daily_quiz_complete"`
	FaucetClaimable    bool    `json:"faucet_claimable"`
	TwitterLinked      bool    `json:"twitter_linked"`
	DiscordLinked      bool    `json:"discord_linked"`
	BridgeUsed         bool    `json:"bridge_used"`
	TotalPoints        int64   `json:"total_points"`
	Rank               int64   `json:"rank"`
	InviteCode         string  `json:"invite_code"`
	Badges             []Badge `json:"badges"`
}

// PendingBadges returns badges that are eligible but not yet minted.
func (p *Profile) PendingBadges() []Badge {
	var out []Badge
	for _, b := range p.Badges {
		if b.Eligible && !b.Minted {
			out = append(out, b)
		}
	}
	return out
}
