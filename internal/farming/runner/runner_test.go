package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
)

type mockExecutor struct {
	executed []domain.ActionKind
	inFlight int
	maxSeen  int
	results  map[domain.ActionKind]func() (domain.Outcome, error)
}

func (m *mockExecutor) Execute(ctx context.Context, w *domain.Wallet, a domain.Action) (domain.Outcome, error) {
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	defer func() { m.inFlight-- }()

	m.executed = append(m.executed, a.Kind)
	if fn, ok := m.results[a.Kind]; ok {
		return fn()
	}
	return domain.OK("done"), nil
}

func actions(kinds ...domain.ActionKind) []domain.Action {
	out := make([]domain.Action, len(kinds))
	for i, k := range kinds {
		out[i] = domain.Action{Kind: k}
	}
	return out
}

func newRunner(exec Executor) *Runner {
	return NewRunner(exec, config.Range{})
}

func TestRunExecutesSequentially(t *testing.T) {
	exec := &mockExecutor{}
	r := newRunner(exec)

	err := r.Run(context.Background(), &domain.Wallet{}, actions(
		domain.ActionOnboard, domain.ActionSwap, domain.ActionStake,
	))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []domain.ActionKind{domain.ActionOnboard, domain.ActionSwap, domain.ActionStake}
	if len(exec.executed) != len(want) {
		t.Fatalf("executed %d actions, want %d", len(exec.executed), len(want))
	}
	for i, k := range want {
		if exec.executed[i] != k {
			t.Errorf("executed[%d] = %v, want %v", i, exec.executed[i], k)
		}
	}
	if exec.maxSeen != 1 {
		t.Errorf("max in-flight = %d, actions must never overlap", exec.maxSeen)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	exec := &mockExecutor{results: map[domain.ActionKind]func() (domain.Outcome, error){
		domain.ActionSwap: func() (domain.Outcome, error) {
			return domain.Failed("pool drained"), nil
		},
		domain.ActionDailyQuiz: func() (domain.Outcome, error) {
			return domain.Outcome{}, errors.New("quiz endpoint exploded")
		},
	}}
	r := newRunner(exec)

	err := r.Run(context.Background(), &domain.Wallet{}, actions(
		domain.ActionSwap, domain.ActionDailyQuiz, domain.ActionStake,
	))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(exec.executed) != 3 {
		t.Errorf("executed %d actions, failures must not stop the sequence", len(exec.executed))
	}
}

func TestRunStopSentinelEndsEarly(t *testing.T) {
	exec := &mockExecutor{results: map[domain.ActionKind]func() (domain.Outcome, error){
		domain.ActionOnboard: func() (domain.Outcome, error) {
			return domain.Outcome{}, domain.ErrStopWallet
		},
	}}
	r := newRunner(exec)

	err := r.Run(context.Background(), &domain.Wallet{}, actions(
		domain.ActionOnboard, domain.ActionSwap,
	))
	if err != nil {
		t.Fatalf("Run() error = %v, stop must count as success", err)
	}
	if len(exec.executed) != 1 {
		t.Errorf("executed %d actions after stop, want 1", len(exec.executed))
	}
}

func TestRunSurfacesTransportFailure(t *testing.T) {
	transportErr := &domain.TransportError{Op: "swap", Err: errors.New("proxy dead")}
	exec := &mockExecutor{results: map[domain.ActionKind]func() (domain.Outcome, error){
		domain.ActionSwap: func() (domain.Outcome, error) {
			return domain.Outcome{}, transportErr
		},
	}}
	r := newRunner(exec)

	err := r.Run(context.Background(), &domain.Wallet{}, actions(
		domain.ActionOnboard, domain.ActionSwap, domain.ActionStake,
	))
	if !domain.IsTransportFailure(err) {
		t.Fatalf("Run() error = %v, want transport failure", err)
	}
	if len(exec.executed) != 2 {
		t.Errorf("executed %d actions, transport failure must stop the sequence", len(exec.executed))
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &mockExecutor{results: map[domain.ActionKind]func() (domain.Outcome, error){
		domain.ActionOnboard: func() (domain.Outcome, error) {
			cancel()
			return domain.Outcome{}, ctx.Err()
		},
	}}
	r := newRunner(exec)

	err := r.Run(ctx, &domain.Wallet{}, actions(domain.ActionOnboard, domain.ActionSwap))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(exec.executed) != 1 {
		t.Errorf("executed %d actions after cancellation", len(exec.executed))
	}
}
