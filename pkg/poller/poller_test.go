package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"go.uber.org/zap"
)

func newFastPoller(t *testing.T, maxAttempts int) *Poller {
	t.Helper()
	p, err := New(zap.NewNop(), Options{
		MaxAttempts: maxAttempts,
		Interval:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create poller: %v", err)
	}
	return p
}

func TestNew_AppliesDefaultEnvelope(t *testing.T) {
	p, err := New(zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("failed to create poller: %v", err)
	}
	if p.opts.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, p.opts.MaxAttempts)
	}
	if p.opts.Interval != DefaultInterval {
		t.Errorf("expected %s interval, got %s", DefaultInterval, p.opts.Interval)
	}
}

func TestAwait_CompletesBeforeBudget(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (icledger.Status, error) {
		calls++
		if calls == 3 {
			return icledger.Status{Phase: icledger.PhaseComplete, TxRef: "tx-3"}, nil
		}
		return icledger.Status{Phase: icledger.PhaseMinting}, nil
	}

	result, err := newFastPoller(t, 30).Await(context.Background(), source)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if result.Outcome != OutcomeComplete {
		t.Errorf("expected complete, got %s", result.Outcome)
	}
	if result.TxRef != "tx-3" {
		t.Errorf("expected tx-3, got %s", result.TxRef)
	}
	if calls != 3 || result.Attempts != 3 {
		t.Errorf("expected exactly 3 calls, got calls=%d attempts=%d", calls, result.Attempts)
	}
}

func TestAwait_StillPendingAfterExactBudget(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (icledger.Status, error) {
		calls++
		return icledger.Status{Phase: icledger.PhaseTransferring}, nil
	}

	result, err := newFastPoller(t, 30).Await(context.Background(), source)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if result.Outcome != OutcomeStillPending {
		t.Errorf("expected still_pending, got %s", result.Outcome)
	}
	if calls != 30 {
		t.Errorf("expected exactly 30 calls, got %d", calls)
	}
}

func TestAwait_TerminalFailureStopsLoop(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (icledger.Status, error) {
		calls++
		return icledger.Status{
			Phase: icledger.PhaseFailed,
			Err:   &icledger.ServiceError{Kind: icledger.KindInsufficientCycles, Have: 1, Need: 2},
		}, nil
	}

	result, err := newFastPoller(t, 30).Await(context.Background(), source)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("expected failed, got %s", result.Outcome)
	}
	if result.Err == nil || result.Err.Kind != icledger.KindInsufficientCycles {
		t.Errorf("expected insufficient_cycles, got %+v", result.Err)
	}
	if calls != 1 {
		t.Errorf("terminal failure must stop the loop, got %d calls", calls)
	}
}

func TestAwait_TransientNetworkErrorsConsumeAttempts(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (icledger.Status, error) {
		calls++
		if calls < 3 {
			return icledger.Status{}, &icledger.ServiceError{Kind: icledger.KindNetworkError, Message: "connection reset"}
		}
		return icledger.Status{Phase: icledger.PhaseComplete, TxRef: "tx-ok"}, nil
	}

	result, err := newFastPoller(t, 30).Await(context.Background(), source)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if result.Outcome != OutcomeComplete {
		t.Errorf("expected complete after transient errors, got %s", result.Outcome)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestAwait_NonNetworkServiceErrorIsTerminal(t *testing.T) {
	source := func(ctx context.Context) (icledger.Status, error) {
		return icledger.Status{}, &icledger.ServiceError{Kind: icledger.KindNotFound}
	}

	result, err := newFastPoller(t, 30).Await(context.Background(), source)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("expected failed, got %s", result.Outcome)
	}
	if result.Err.Kind != icledger.KindNotFound {
		t.Errorf("expected not_found, got %s", result.Err.Kind)
	}
}

func TestAwait_ReportsProgressMessages(t *testing.T) {
	var messages []string
	p, err := New(zap.NewNop(), Options{
		MaxAttempts: 5,
		Interval:    time.Millisecond,
		OnProgress:  func(msg string) { messages = append(messages, msg) },
	})
	if err != nil {
		t.Fatalf("failed to create poller: %v", err)
	}

	phases := []icledger.Phase{
		icledger.PhaseCheckingOwner,
		icledger.PhaseRetrievingMetadata,
		icledger.PhaseMinting,
		icledger.PhaseComplete,
	}
	calls := 0
	source := func(ctx context.Context) (icledger.Status, error) {
		status := icledger.Status{Phase: phases[calls]}
		calls++
		return status, nil
	}

	if _, err := p.Await(context.Background(), source); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 progress messages, got %d: %v", len(messages), messages)
	}
	if messages[0] != "Verifying ownership on the source chain" {
		t.Errorf("unexpected first message %q", messages[0])
	}
}

func TestAwait_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := func(ctx context.Context) (icledger.Status, error) {
		cancel()
		return icledger.Status{Phase: icledger.PhaseMinting}, nil
	}

	_, err := newFastPoller(t, 30).Await(ctx, source)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
