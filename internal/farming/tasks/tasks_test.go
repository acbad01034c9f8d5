package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage/memory"
	"github.com/vietddude/harvester/internal/platform"
)

type stubPortal struct {
	profile  *platform.Profile
	outcomes map[string]domain.Outcome
	errs     map[string]error
	calls    []string
}

func (s *stubPortal) result(name string) (domain.Outcome, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.errs[name]; ok {
		return domain.Outcome{}, err
	}
	if out, ok := s.outcomes[name]; ok {
		return out, nil
	}
	return domain.OK(name), nil
}

func (s *stubPortal) Profile(ctx context.Context, w *domain.Wallet) (*platform.Profile, error) {
	s.calls = append(s.calls, "profile")
	if err, ok := s.errs["profile"]; ok {
		return nil, err
	}
	if s.profile != nil {
		return s.profile, nil
	}
	return &platform.Profile{}, nil
}

func (s *stubPortal) Onboard(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("onboard")
}
func (s *stubPortal) DailyQuiz(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("quiz")
}
func (s *stubPortal) Faucet(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("faucet")
}
func (s *stubPortal) AgentChat(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("chat")
}
func (s *stubPortal) ClaimBadge(ctx context.Context, w *domain.Wallet, id int64) (domain.Outcome, error) {
	return s.result(fmt.Sprintf("badge:%d", id))
}
func (s *stubPortal) ClaimRewards(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("rewards")
}
func (s *stubPortal) SocialGrab(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("social")
}
func (s *stubPortal) BindTwitter(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("twitter")
}
func (s *stubPortal) JoinDiscord(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("discord")
}
func (s *stubPortal) BindEOA(ctx context.Context, w *domain.Wallet, key string) (domain.Outcome, error) {
	return s.result("bind_eoa")
}
func (s *stubPortal) CheckAirdrop(ctx context.Context, w *domain.Wallet) (domain.Outcome, error) {
	return s.result("airdrop")
}

type stubChain struct {
	dripErr error
	calls   []string
}

func (s *stubChain) tx(name string) (common.Hash, error) {
	s.calls = append(s.calls, name)
	return common.HexToHash("0xbeef"), nil
}

func (s *stubChain) Balance(ctx context.Context, w *domain.Wallet) (*big.Int, error) {
	return big.NewInt(1e18), nil
}
func (s *stubChain) Drip(ctx context.Context, w *domain.Wallet) (common.Hash, error) {
	s.calls = append(s.calls, "drip")
	if s.dripErr != nil {
		return common.Hash{}, s.dripErr
	}
	return common.HexToHash("0xbeef"), nil
}
func (s *stubChain) Swap(ctx context.Context, w *domain.Wallet, p int) (common.Hash, error) {
	return s.tx("swap")
}
func (s *stubChain) Bridge(ctx context.Context, w *domain.Wallet, p int) (common.Hash, error) {
	return s.tx("bridge")
}
func (s *stubChain) MultisigCreate(ctx context.Context, w *domain.Wallet) (common.Hash, error) {
	return s.tx("ms_create")
}
func (s *stubChain) MultisigDeposit(ctx context.Context, w *domain.Wallet, safe string, p int) (common.Hash, error) {
	return s.tx("ms_deposit")
}
func (s *stubChain) MultisigWithdraw(ctx context.Context, w *domain.Wallet, safe string) (common.Hash, error) {
	return s.tx("ms_withdraw")
}
func (s *stubChain) Stake(ctx context.Context, w *domain.Wallet, p int) (common.Hash, error) {
	return s.tx("stake")
}

type stubFailover struct {
	proxies []string
	err     error
	calls   int
}

func (s *stubFailover) Failover(ctx context.Context, w *domain.Wallet) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.proxies) == 0 {
		return "", domain.ErrReserveExhausted
	}
	p := s.proxies[0]
	s.proxies = s.proxies[1:]
	w.Proxy = p
	return p, nil
}

type stubBuilder struct {
	actions []domain.Action
	err     error
}

func (s *stubBuilder) Build(ctx context.Context, w *domain.Wallet) ([]domain.Action, error) {
	return s.actions, s.err
}

type stubRunner struct {
	errs  []error
	calls int
}

func (s *stubRunner) Run(ctx context.Context, w *domain.Wallet, actions []domain.Action) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func newTestController(t *testing.T, portal Portal, chain Chain, fo Failover) (*Controller, *domain.Wallet) {
	t.Helper()
	repo := memory.NewWalletRepo(memory.NewMemoryStorage())
	wallet := &domain.Wallet{Address: "0x01", SmartAddress: "0xsafe", Proxy: "http://p0:8080"}
	if err := repo.Save(context.Background(), wallet); err != nil {
		t.Fatal(err)
	}

	cfg := config.FarmConfig{
		SwapPercent: config.Range{Min: 5, Max: 10},
		Swaps:       config.Range{Min: 1, Max: 1},
		AIDialogs:   config.Range{Min: 1, Max: 1},
	}
	return NewController(cfg, portal, chain, repo, fo, nil), wallet
}

func TestRandomActivitySyncsProfile(t *testing.T) {
	portal := &stubPortal{profile: &platform.Profile{TotalPoints: 777, Rank: 3, InviteCode: "INV42"}}
	ctrl, wallet := newTestController(t, portal, &stubChain{}, &stubFailover{})
	ctrl.builder = &stubBuilder{actions: []domain.Action{{Kind: domain.ActionDailyQuiz}}}
	ctrl.runner = &stubRunner{}

	if err := ctrl.RandomActivity(context.Background(), wallet); err != nil {
		t.Fatalf("RandomActivity() error = %v", err)
	}
	if wallet.Points != 777 || wallet.Rank != 3 || wallet.InviteCode != "INV42" {
		t.Errorf("profile not synced: %+v", wallet)
	}
}

func TestRandomActivityBootstrapFailureIsFatal(t *testing.T) {
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, &stubFailover{})
	ctrl.builder = &stubBuilder{err: domain.ErrBootstrapFailed}
	ctrl.runner = &stubRunner{}

	err := ctrl.RandomActivity(context.Background(), wallet)
	if !errors.Is(err, domain.ErrBootstrapFailed) {
		t.Fatalf("RandomActivity() error = %v, want ErrBootstrapFailed", err)
	}
}

func TestWithFailoverRetriesThenSucceeds(t *testing.T) {
	fo := &stubFailover{proxies: []string{"http://p1:8080"}}
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, fo)
	ctrl.builder = &stubBuilder{actions: []domain.Action{{Kind: domain.ActionSwap}}}
	runner := &stubRunner{errs: []error{
		&domain.TransportError{Op: "swap", Err: errors.New("proxy dead")},
	}}
	ctrl.runner = runner

	if err := ctrl.RandomActivity(context.Background(), wallet); err != nil {
		t.Fatalf("RandomActivity() error = %v", err)
	}
	if fo.calls != 1 {
		t.Errorf("failover calls = %d, want 1", fo.calls)
	}
	if runner.calls != 2 {
		t.Errorf("runner calls = %d, want 2", runner.calls)
	}
	if wallet.Proxy != "http://p1:8080" {
		t.Errorf("wallet proxy = %q after failover", wallet.Proxy)
	}
}

func TestWithFailoverBounded(t *testing.T) {
	fo := &stubFailover{proxies: []string{"p1", "p2", "p3", "p4", "p5"}}
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, fo)

	transport := &domain.TransportError{Op: "x", Err: errors.New("dead")}
	calls := 0
	err := ctrl.withFailover(context.Background(), wallet, func(ctx context.Context) error {
		calls++
		return transport
	})
	if err == nil {
		t.Fatal("expected error after exhausting failover budget")
	}
	if fo.calls != maxFailovers {
		t.Errorf("failover calls = %d, want %d", fo.calls, maxFailovers)
	}
	if calls != maxFailovers+1 {
		t.Errorf("fn calls = %d, want %d", calls, maxFailovers+1)
	}
}

func TestWithFailoverReserveExhausted(t *testing.T) {
	fo := &stubFailover{}
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, fo)

	err := ctrl.withFailover(context.Background(), wallet, func(ctx context.Context) error {
		return &domain.TransportError{Op: "x", Err: errors.New("dead")}
	})
	if !errors.Is(err, domain.ErrReserveExhausted) {
		t.Fatalf("error = %v, want ErrReserveExhausted", err)
	}
}

func TestExecuteOnChainFaucetSetsCooldown(t *testing.T) {
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, &stubFailover{})

	out, err := ctrl.Execute(context.Background(), wallet, domain.Action{Kind: domain.ActionOnChainFaucet})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != domain.StatusOK {
		t.Errorf("status = %v", out.Status)
	}
	if wallet.NextFaucetAt == nil {
		t.Fatal("faucet cooldown not set")
	}
	if until := time.Until(*wallet.NextFaucetAt); until < 23*time.Hour {
		t.Errorf("cooldown too short: %v", until)
	}
	if !strings.Contains(out.Message, "0x") {
		t.Errorf("message missing tx hash: %q", out.Message)
	}
}

func TestExecuteOnChainFaucetCooldownRevert(t *testing.T) {
	// A revert saying the claim is inside its cooldown window counts as
	// rate-limited and pushes the cooldown forward, same as an HTTP 429
	// from the captcha faucet.
	chain := &stubChain{dripErr: errors.New("execution reverted: wait for cooldown")}
	ctrl, wallet := newTestController(t, &stubPortal{}, chain, &stubFailover{})

	out, err := ctrl.Execute(context.Background(), wallet, domain.Action{Kind: domain.ActionOnChainFaucet})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != domain.StatusRateLimited {
		t.Errorf("status = %v, want rate_limited", out.Status)
	}
	if wallet.NextFaucetAt == nil {
		t.Fatal("cooldown revert must set the faucet cooldown")
	}
	if until := time.Until(*wallet.NextFaucetAt); until < 23*time.Hour {
		t.Errorf("cooldown too short: %v", until)
	}
}

func TestExecuteOnChainFaucetRevertIsSoft(t *testing.T) {
	chain := &stubChain{dripErr: errors.New("execution reverted: out of tokens")}
	ctrl, wallet := newTestController(t, &stubPortal{}, chain, &stubFailover{})

	out, err := ctrl.Execute(context.Background(), wallet, domain.Action{Kind: domain.ActionOnChainFaucet})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != domain.StatusFailed {
		t.Errorf("status = %v, want failed", out.Status)
	}
	if wallet.NextFaucetAt != nil {
		t.Error("non-cooldown revert must not set the cooldown")
	}
}

func TestExecuteDispatch(t *testing.T) {
	portal := &stubPortal{}
	chain := &stubChain{}
	ctrl, wallet := newTestController(t, portal, chain, &stubFailover{})

	for _, a := range []domain.Action{
		{Kind: domain.ActionOnboard},
		{Kind: domain.ActionClaimBadge, BadgeID: 9},
		{Kind: domain.ActionSwap},
		{Kind: domain.ActionMultisigWithdraw},
	} {
		if _, err := ctrl.Execute(context.Background(), wallet, a); err != nil {
			t.Fatalf("Execute(%v) error = %v", a.Kind, err)
		}
	}

	wantPortal := []string{"onboard", "badge:9"}
	for _, w := range wantPortal {
		found := false
		for _, got := range portal.calls {
			if got == w {
				found = true
			}
		}
		if !found {
			t.Errorf("portal call %q missing, got %v", w, portal.calls)
		}
	}
	wantChain := []string{"swap", "ms_withdraw"}
	for _, w := range wantChain {
		found := false
		for _, got := range chain.calls {
			if got == w {
				found = true
			}
		}
		if !found {
			t.Errorf("chain call %q missing, got %v", w, chain.calls)
		}
	}
}

func TestBindEOARequiresKeys(t *testing.T) {
	ctrl, wallet := newTestController(t, &stubPortal{}, &stubChain{}, &stubFailover{})
	if err := ctrl.BindEOA(context.Background(), wallet); err == nil {
		t.Fatal("expected error without configured EOA keys")
	}
}

func TestBindEOAWrapsKeyIndex(t *testing.T) {
	// Wallets pair with keys by position, wrapping around the key list. A
	// wallet that was never saved still has ID 0 and must map to a valid key
	// instead of panicking on a negative index.
	portal := &stubPortal{}
	ctrl, _ := newTestController(t, portal, &stubChain{}, &stubFailover{})
	ctrl.eoaKeys = []string{"k1", "k2", "k3"}

	for _, id := range []int64{0, 1, 4, 7} {
		wallet := &domain.Wallet{ID: id, Address: "0x02"}
		if err := ctrl.BindEOA(context.Background(), wallet); err != nil {
			t.Fatalf("BindEOA(id=%d) error = %v", id, err)
		}
	}
	if len(portal.calls) != 4 {
		t.Errorf("portal calls = %v, want 4 bind attempts", portal.calls)
	}
}

func TestCheckerRecordsCall(t *testing.T) {
	portal := &stubPortal{outcomes: map[string]domain.Outcome{
		"airdrop": domain.OK("eligible=true amount=120.00"),
	}}
	ctrl, wallet := newTestController(t, portal, &stubChain{}, &stubFailover{})

	if err := ctrl.Checker(context.Background(), wallet); err != nil {
		t.Fatalf("Checker() error = %v", err)
	}
	if len(portal.calls) == 0 || portal.calls[0] != "airdrop" {
		t.Errorf("portal calls = %v", portal.calls)
	}
}
