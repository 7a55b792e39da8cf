package orchestrator

import "errors"

// WizardState is a wizard screen, not a step status. The UI walks these
// states; the orchestrator's Run is what executes behind submit.
type WizardState string

const (
	StateConnect    WizardState = "connect"
	StateSelect     WizardState = "select"
	StateQuoteCosts WizardState = "quote_costs"
	StateTransfer   WizardState = "transfer"
	StateSubmit     WizardState = "submit"
	StateComplete   WizardState = "complete"
)

var (
	ErrWalletNotConnected = errors.New("wallet is not connected")
	ErrNoNetworkResolved  = errors.New("target network is not resolved")
	ErrNoAssetsSelected   = errors.New("no assets selected")
	ErrCostsUnresolved    = errors.New("costs have not been resolved")
	ErrSubmitInProgress   = errors.New("cannot navigate during an active submission")
)

// Wizard tracks the screen-level flow of one bridge attempt and enforces the
// transition guards. Facts (connected, selection count, cost resolution,
// failed step) are pushed in by the embedding client as they change. The REST
// surface drives runs directly and does not host a wizard; this type exists
// for UI clients that walk the flow screen by screen against the library.
type Wizard struct {
	state WizardState

	connected       bool
	networkResolved bool
	selectedAssets  int
	costsResolved   bool
	needsTransfer   bool
	submitting      bool
	hasFailedStep   bool
}

// NewWizard starts at the connect screen.
func NewWizard() *Wizard {
	return &Wizard{state: StateConnect}
}

// State returns the current screen.
func (w *Wizard) State() WizardState {
	return w.state
}

// SetConnected records wallet connection and network resolution.
func (w *Wizard) SetConnected(connected, networkResolved bool) {
	w.connected = connected
	w.networkResolved = networkResolved
}

// SetSelection records how many assets are selected and whether any of them
// need a prior on-chain transfer.
func (w *Wizard) SetSelection(count int, needsTransfer bool) {
	w.selectedAssets = count
	w.needsTransfer = needsTransfer
}

// SetCostsResolved records whether the quote step produced a usable total.
func (w *Wizard) SetCostsResolved(resolved bool) {
	w.costsResolved = resolved
}

// SetSubmitting marks an active submit-and-poll run.
func (w *Wizard) SetSubmitting(submitting bool) {
	w.submitting = submitting
}

// SetFailedStep records whether the current state holds a failed step, which
// re-opens back-navigation during submit as the recovery path.
func (w *Wizard) SetFailedStep(failed bool) {
	w.hasFailedStep = failed
}

// Next advances one screen, enforcing the forward guards.
func (w *Wizard) Next() error {
	switch w.state {
	case StateConnect:
		if !w.connected {
			return ErrWalletNotConnected
		}
		if !w.networkResolved {
			return ErrNoNetworkResolved
		}
		w.state = StateSelect
	case StateSelect:
		if w.selectedAssets == 0 {
			return ErrNoAssetsSelected
		}
		w.state = StateQuoteCosts
	case StateQuoteCosts:
		if !w.costsResolved {
			return ErrCostsUnresolved
		}
		if w.needsTransfer {
			w.state = StateTransfer
		} else {
			w.state = StateSubmit
		}
	case StateTransfer:
		w.state = StateSubmit
	case StateSubmit:
		w.state = StateComplete
	case StateComplete:
		// Terminal; reset to start over.
	}
	return nil
}

// Back moves one screen backward. Backward navigation is free except during
// an active submit, where it is only allowed once a step has failed.
func (w *Wizard) Back() error {
	if w.state == StateSubmit && w.submitting && !w.hasFailedStep {
		return ErrSubmitInProgress
	}

	switch w.state {
	case StateSelect:
		w.state = StateConnect
	case StateQuoteCosts:
		w.state = StateSelect
	case StateTransfer:
		w.state = StateQuoteCosts
	case StateSubmit:
		if w.needsTransfer {
			w.state = StateTransfer
		} else {
			w.state = StateQuoteCosts
		}
	case StateComplete:
		w.state = StateSubmit
	}
	return nil
}

// Reset returns the wizard to the connect screen, discarding facts about the
// previous attempt.
func (w *Wizard) Reset() {
	*w = Wizard{state: StateConnect}
}
