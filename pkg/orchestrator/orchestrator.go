package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/chainsafe/cknft-bridge/internal/metrics"
	"github.com/chainsafe/cknft-bridge/pkg/config"
	"github.com/chainsafe/cknft-bridge/pkg/evm"
	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/poller"
	"github.com/chainsafe/cknft-bridge/pkg/progress"
	"github.com/chainsafe/cknft-bridge/pkg/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService is the remote bridge orchestrator surface this core drives.
type LedgerService interface {
	QuoteCanisterCreationCost(ctx context.Context, pointer icledger.ContractPointer) (uint64, error)
	QuoteCastCost(ctx context.Context, ckCanister, contract string, network icledger.Network, tokenID string) (uint64, error)
	ResolveApprovalAddress(ctx context.Context, account string, remote icledger.ContractPointer) (string, error)
	ResolveFundingAddress(ctx context.Context, canister string, network icledger.Network) (string, error)
	CreateOrGetCanister(ctx context.Context, pointer icledger.ContractPointer, defaults icledger.CanisterDefaults, requiredCycles uint64) (string, error)
	SubmitMint(ctx context.Context, req icledger.MintRequest, requiredCycles uint64) (string, error)
	PollMintStatus(ctx context.Context, mintRequestID string) (icledger.Status, error)
	SubmitCast(ctx context.Context, req icledger.CastRequest) (string, error)
	PollCastStatus(ctx context.Context, castID string) (icledger.Status, error)
}

// TransactionDriver is the source-chain surface this core drives.
type TransactionDriver interface {
	VerifyOwnership(ctx context.Context, contract common.Address, tokenID *big.Int, claimed common.Address) error
	TransferAsset(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) (*types.Receipt, error)
	EstimateTransferGas(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) uint64
	GetFeeData(ctx context.Context) *evm.FeeData
	CheckBalance(ctx context.Context, wallet common.Address, need *big.Int) error
}

// Wallet is the session surface the connect step checks.
type Wallet interface {
	Connected() bool
	Address() common.Address
	ChainID() int64
}

// RunRecorder persists run history. A nil recorder disables persistence.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *store.BridgeRun) error
	FinishRun(ctx context.Context, runID string, status store.RunStatus) error
	RecordAsset(ctx context.Context, asset *store.BridgeAsset) error
}

// Orchestrator sequences one bridge direction end to end for one or many
// assets, updating the progress model as it goes. One orchestrator hosts one
// active run at a time; the UI observes progress and re-enters via RetryStep.
type Orchestrator struct {
	cfg      *config.BridgeConfig
	wallet   Wallet
	driver   TransactionDriver
	ledger   LedgerService
	recorder RunRecorder
	logger   *zap.Logger

	mu       sync.RWMutex
	progress *progress.BridgeProgress
	observer func(*progress.BridgeProgress)

	run *runState
}

// runState carries everything a run accumulates, so a retry re-enters with
// completed work intact.
type runState struct {
	id        string
	direction progress.Direction
	assets    []Asset
	recipient string
	defaults  icledger.CanisterDefaults
	network   icledger.Network
	pointer   icledger.ContractPointer

	costs      *CostBreakdown
	custody    common.Address
	canisterID string
	// submissionIDs[i] is the mint/cast request id for assets[i], empty
	// until submitted. A non-empty id is never resubmitted.
	submissionIDs []string
	results       []AssetResult
}

// New creates an orchestrator. recorder may be nil.
func New(cfg *config.BridgeConfig, wallet Wallet, driver TransactionDriver, ledger LedgerService, recorder RunRecorder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		wallet:   wallet,
		driver:   driver,
		ledger:   ledger,
		recorder: recorder,
		logger:   logger,
	}
}

// OnUpdate registers the progress observer. Called with every replacement;
// the value is copy-on-write so the observer may retain it.
func (o *Orchestrator) OnUpdate(fn func(*progress.BridgeProgress)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

// Progress returns the current progress value.
func (o *Orchestrator) Progress() *progress.BridgeProgress {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress
}

// ToggleStage flips a stage's collapsed flag.
func (o *Orchestrator) ToggleStage(id progress.StageID) {
	o.mu.Lock()
	if o.progress != nil {
		o.progress = progress.ToggleStage(o.progress, id)
	}
	observer, p := o.observer, o.progress
	o.mu.Unlock()

	if observer != nil && p != nil {
		observer(p)
	}
}

// StartRun begins a fresh bridge run for the given direction and assets.
// It blocks until the run reaches a terminal result; the progress model is
// observable concurrently through Progress/OnUpdate.
func (o *Orchestrator) StartRun(ctx context.Context, direction progress.Direction, assets []Asset, recipient string, defaults icledger.CanisterDefaults) (*RunResult, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssetsSelected
	}
	if direction == progress.DirectionLedgerToSource {
		for _, a := range assets {
			if a.CkCanister == "" {
				return nil, fmt.Errorf("asset %s: cast requires a ck canister id", a.TokenID)
			}
		}
	}

	network := icledger.EthereumNetwork(o.wallet.ChainID())
	run := &runState{
		id:            uuid.NewString(),
		direction:     direction,
		assets:        assets,
		recipient:     recipient,
		defaults:      defaults,
		network:       network,
		pointer:       icledger.ContractPointer{Contract: assets[0].Contract.Hex(), Network: network},
		submissionIDs: make([]string, len(assets)),
		results:       make([]AssetResult, len(assets)),
	}
	for i, a := range assets {
		run.results[i] = AssetResult{
			TokenID:  a.TokenID.String(),
			Contract: a.Contract.Hex(),
			Outcome:  AssetNotAttempted,
		}
	}

	o.mu.Lock()
	o.run = run
	o.progress = progress.New(direction)
	o.mu.Unlock()
	o.notify()

	if o.recorder != nil {
		rec := &store.BridgeRun{
			ID:         run.id,
			Direction:  string(direction),
			Wallet:     o.wallet.Address().Hex(),
			AssetCount: len(assets),
			Status:     store.RunStatusRunning,
		}
		if err := o.recorder.CreateRun(ctx, rec); err != nil {
			o.logger.Warn("failed to record run start", zap.Error(err))
		}
	}

	return o.execute(ctx)
}

// RetryStep resets a failed, retryable step to pending and re-enters the run
// at that step. Completed steps and completed assets are never redone.
func (o *Orchestrator) RetryStep(ctx context.Context, id progress.StepID) (*RunResult, error) {
	o.mu.Lock()
	if o.run == nil || o.progress == nil {
		o.mu.Unlock()
		return nil, errors.New("no active run to retry")
	}
	step, ok := o.progress.FindStep(id)
	if !ok {
		o.mu.Unlock()
		return nil, fmt.Errorf("unknown step %q", id)
	}
	if step.Status != progress.StepFailed {
		o.mu.Unlock()
		return nil, fmt.Errorf("step %q is not failed", id)
	}
	if !step.Retryable {
		o.mu.Unlock()
		return nil, fmt.Errorf("step %q is not retryable", id)
	}
	o.progress = progress.RetryStep(o.progress, id)
	// Clear the failed marks of assets the retried step will re-attempt.
	for i := range o.run.results {
		if o.run.results[i].Outcome == AssetFailed || o.run.results[i].Outcome == AssetPending {
			o.run.results[i].Outcome = AssetNotAttempted
			o.run.results[i].Err = nil
		}
	}
	o.mu.Unlock()
	o.notify()

	return o.execute(ctx)
}

type stepExec struct {
	id progress.StepID
	fn func(ctx context.Context, r *runState) error
}

func (o *Orchestrator) plan(direction progress.Direction) []stepExec {
	if direction == progress.DirectionLedgerToSource {
		return []stepExec{
			{progress.StepConnectWallet, o.stepConnectWallet},
			{progress.StepQuoteCastCost, o.stepQuoteCastCost},
			{progress.StepFundCanister, o.stepFundCanister},
			{progress.StepSubmitCast, o.stepSubmitCast},
			{progress.StepVerifyCast, o.stepVerifyCast},
		}
	}
	return []stepExec{
		{progress.StepConnectWallet, o.stepConnectWallet},
		{progress.StepApproveNFT, o.stepApproveTransfer},
		{progress.StepCreateCanister, o.stepCreateCanister},
		{progress.StepMintCkNFT, o.stepMintCkNFT},
		{progress.StepVerifyMint, o.stepVerifyMint},
	}
}

// execute walks the step plan, skipping steps already completed. It is the
// single failure boundary: any error or panic inside a step lands on that
// step as a failed status, and no step is ever left loading when it returns.
func (o *Orchestrator) execute(ctx context.Context) (result *RunResult, err error) {
	run := o.run

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	var active progress.StepID
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during bridge run",
				zap.String("run_id", run.id),
				zap.Any("panic", r))
			if active != "" {
				o.failStep(active, fmt.Errorf("internal error: %v", r))
			}
			result = o.finishRun(run, string(active))
			err = nil
		}
	}()

	for _, st := range o.plan(run.direction) {
		current, ok := o.Progress().FindStep(st.id)
		if !ok {
			continue
		}
		if current.Status == progress.StepCompleted || current.Status == progress.StepSkipped {
			continue
		}

		active = st.id
		o.setStepStatus(st.id, progress.StepLoading)
		started := time.Now()

		if stepErr := st.fn(ctx, run); stepErr != nil {
			o.failStep(st.id, stepErr)
			metrics.StepsTotal.WithLabelValues(string(st.id), "failed").Inc()
			metrics.StepDuration.WithLabelValues(string(st.id)).Observe(time.Since(started).Seconds())
			return o.finishRun(run, string(st.id)), nil
		}

		o.setStepStatus(st.id, progress.StepCompleted)
		metrics.StepsTotal.WithLabelValues(string(st.id), "completed").Inc()
		metrics.StepDuration.WithLabelValues(string(st.id)).Observe(time.Since(started).Seconds())
		active = ""
	}

	return o.finishRun(run, ""), nil
}

// finishRun assembles the terminal result and records it.
func (o *Orchestrator) finishRun(run *runState, failedStep string) *RunResult {
	result := &RunResult{
		RunID:      run.id,
		Success:    failedStep == "",
		FailedStep: failedStep,
		Assets:     append([]AssetResult(nil), run.results...),
	}

	status := store.RunStatusCompleted
	if !result.Success {
		status = store.RunStatusFailed
	}
	metrics.RunsTotal.WithLabelValues(string(run.direction), string(status)).Inc()

	for _, a := range result.Assets {
		metrics.AssetsBridged.WithLabelValues(string(run.direction), string(a.Outcome)).Inc()
	}

	if o.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i, a := range result.Assets {
			rec := &store.BridgeAsset{
				RunID:    run.id,
				Position: i,
				Contract: a.Contract,
				TokenID:  a.TokenID,
				Outcome:  string(a.Outcome),
				TxRef:    a.TxRef,
			}
			if a.Err != nil {
				rec.Error = a.Err.Error()
			}
			if err := o.recorder.RecordAsset(ctx, rec); err != nil {
				o.logger.Warn("failed to record asset outcome", zap.Error(err))
			}
		}
		if err := o.recorder.FinishRun(ctx, run.id, status); err != nil {
			o.logger.Warn("failed to record run finish", zap.Error(err))
		}
	}

	o.logger.Info("bridge run finished",
		zap.String("run_id", run.id),
		zap.String("direction", string(run.direction)),
		zap.Bool("success", result.Success),
		zap.String("failed_step", failedStep))

	return result
}

// newPoller builds the bounded status poller that feeds a step's progress message.
func (o *Orchestrator) newPoller(stepID progress.StepID) (*poller.Poller, error) {
	return poller.New(o.logger, poller.Options{
		MaxAttempts: o.cfg.PollAttempts,
		Interval:    o.cfg.PollInterval,
		OnProgress: func(msg string) {
			o.setStepMessage(stepID, msg)
		},
	})
}

func (o *Orchestrator) notify() {
	o.mu.RLock()
	observer, p := o.observer, o.progress
	o.mu.RUnlock()

	if observer != nil && p != nil {
		observer(p)
	}
}

func (o *Orchestrator) applyPatch(id progress.StepID, patch progress.StepPatch) {
	o.mu.Lock()
	if o.progress != nil {
		o.progress = progress.UpdateStep(o.progress, id, patch)
	}
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) setStepStatus(id progress.StepID, status progress.StepStatus) {
	o.applyPatch(id, progress.StepPatch{Status: &status})
}

func (o *Orchestrator) setStepMessage(id progress.StepID, msg string) {
	o.applyPatch(id, progress.StepPatch{Message: &msg})
}

func (o *Orchestrator) setStepTxHash(id progress.StepID, txHash string) {
	o.applyPatch(id, progress.StepPatch{TxHash: &txHash})
}

// failStep records a failed status with a human-readable message derived from
// the typed error. The typed error itself stays on the asset results so
// callers can branch on kind.
func (o *Orchestrator) failStep(id progress.StepID, err error) {
	var svcErr *icledger.ServiceError
	if errors.As(err, &svcErr) {
		metrics.LedgerErrors.WithLabelValues(string(svcErr.Kind)).Inc()
	}

	o.logger.Error("bridge step failed",
		zap.String("step", string(id)),
		zap.Error(err))

	status := progress.StepFailed
	msg := err.Error()
	o.applyPatch(id, progress.StepPatch{Status: &status, Error: &msg})
}
