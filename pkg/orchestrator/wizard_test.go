package orchestrator

import (
	"errors"
	"testing"
)

func TestWizardForwardGuards(t *testing.T) {
	w := NewWizard()

	if err := w.Next(); !errors.Is(err, ErrWalletNotConnected) {
		t.Errorf("expected ErrWalletNotConnected, got %v", err)
	}
	w.SetConnected(true, false)
	if err := w.Next(); !errors.Is(err, ErrNoNetworkResolved) {
		t.Errorf("expected ErrNoNetworkResolved, got %v", err)
	}
	w.SetConnected(true, true)
	if err := w.Next(); err != nil {
		t.Fatalf("connect -> select: %v", err)
	}
	if w.State() != StateSelect {
		t.Fatalf("expected select, got %s", w.State())
	}

	if err := w.Next(); !errors.Is(err, ErrNoAssetsSelected) {
		t.Errorf("expected ErrNoAssetsSelected, got %v", err)
	}
	w.SetSelection(2, true)
	if err := w.Next(); err != nil {
		t.Fatalf("select -> quote: %v", err)
	}

	if err := w.Next(); !errors.Is(err, ErrCostsUnresolved) {
		t.Errorf("expected ErrCostsUnresolved, got %v", err)
	}
	w.SetCostsResolved(true)
	if err := w.Next(); err != nil {
		t.Fatalf("quote -> transfer: %v", err)
	}
	if w.State() != StateTransfer {
		t.Fatalf("expected transfer screen when a transfer is needed, got %s", w.State())
	}

	for _, want := range []WizardState{StateSubmit, StateComplete} {
		if err := w.Next(); err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if w.State() != want {
			t.Fatalf("expected %s, got %s", want, w.State())
		}
	}
}

func TestWizardSkipsTransferWhenNotNeeded(t *testing.T) {
	w := NewWizard()
	w.SetConnected(true, true)
	w.SetSelection(1, false)
	w.SetCostsResolved(true)

	for _, want := range []WizardState{StateSelect, StateQuoteCosts, StateSubmit} {
		if err := w.Next(); err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if w.State() != want {
			t.Fatalf("expected %s, got %s", want, w.State())
		}
	}

	// Back from submit skips the transfer screen symmetrically.
	if err := w.Back(); err != nil {
		t.Fatalf("back from submit: %v", err)
	}
	if w.State() != StateQuoteCosts {
		t.Errorf("expected quote_costs, got %s", w.State())
	}
}

func TestWizardBackBlockedDuringSubmit(t *testing.T) {
	w := NewWizard()
	w.SetConnected(true, true)
	w.SetSelection(1, false)
	w.SetCostsResolved(true)
	for i := 0; i < 3; i++ {
		if err := w.Next(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if w.State() != StateSubmit {
		t.Fatalf("expected submit, got %s", w.State())
	}

	w.SetSubmitting(true)
	if err := w.Back(); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("expected ErrSubmitInProgress, got %v", err)
	}

	// A failed step re-opens back-navigation as the recovery path.
	w.SetFailedStep(true)
	if err := w.Back(); err != nil {
		t.Errorf("back after failed step: %v", err)
	}
	if w.State() != StateQuoteCosts {
		t.Errorf("expected quote_costs, got %s", w.State())
	}
}

func TestWizardReset(t *testing.T) {
	w := NewWizard()
	w.SetConnected(true, true)
	if err := w.Next(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	w.Reset()
	if w.State() != StateConnect {
		t.Errorf("expected connect after reset, got %s", w.State())
	}
	if err := w.Next(); !errors.Is(err, ErrWalletNotConnected) {
		t.Errorf("expected facts to be discarded on reset, got %v", err)
	}
}
