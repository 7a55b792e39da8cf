package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/chainsafe/cknft-bridge/internal/metrics"
	"github.com/chainsafe/cknft-bridge/pkg/evm"
	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/poller"
	"github.com/chainsafe/cknft-bridge/pkg/progress"
	"github.com/ethereum/go-ethereum/common"
)

func (o *Orchestrator) stepConnectWallet(_ context.Context, _ *runState) error {
	if !o.wallet.Connected() {
		return ErrWalletNotConnected
	}
	if o.wallet.ChainID() == 0 {
		return ErrNoNetworkResolved
	}
	o.setStepMessage(progress.StepConnectWallet, fmt.Sprintf("Connected as %s", o.wallet.Address().Hex()))
	return nil
}

// stepApproveTransfer moves every asset the wallet still holds into bridge
// custody, sequentially with a delay between transfers. Assets already held
// by the custody address are skipped, which also makes the step idempotent
// under retry.
func (o *Orchestrator) stepApproveTransfer(ctx context.Context, r *runState) error {
	custodyHex, err := o.ledger.ResolveApprovalAddress(ctx, o.wallet.Address().Hex(), r.pointer)
	if err != nil {
		return fmt.Errorf("failed to resolve custody address: %w", err)
	}
	r.custody = common.HexToAddress(custodyHex)

	wallet := o.wallet.Address()
	var pending []int
	for i, asset := range r.assets {
		if err := o.driver.VerifyOwnership(ctx, asset.Contract, asset.TokenID, r.custody); err == nil {
			continue // already in custody
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		o.setStepMessage(progress.StepApproveNFT, "Skipped - No owned NFTs to transfer")
		return nil
	}

	// Preflight: the wallet must cover the estimated fees for the whole
	// sub-loop before the first transfer goes out. Per-asset estimates where
	// the provider answers, the conservative constant where it does not.
	fees := o.driver.GetFeeData(ctx)
	need := new(big.Int)
	for _, i := range pending {
		asset := r.assets[i]
		gas := o.driver.EstimateTransferGas(ctx, asset.Contract, asset.TokenID, wallet, r.custody)
		need.Add(need, new(big.Int).SetUint64(gas))
	}
	need.Mul(need, fees.GasPrice)
	if err := o.driver.CheckBalance(ctx, wallet, need); err != nil {
		return err
	}

	for n, i := range pending {
		asset := r.assets[i]
		o.setStepMessage(progress.StepApproveNFT, fmt.Sprintf("Transferring NFT %d/%d", n+1, len(pending)))

		// Re-verify immediately before the transfer so an external transfer
		// since selection is caught instead of reverting on-chain.
		if err := o.driver.VerifyOwnership(ctx, asset.Contract, asset.TokenID, wallet); err != nil {
			r.results[i].Outcome = AssetFailed
			r.results[i].Err = err
			return err
		}

		receipt, err := o.driver.TransferAsset(ctx, asset.Contract, asset.TokenID, wallet, r.custody)
		if err != nil {
			r.results[i].Outcome = AssetFailed
			r.results[i].Err = err
			return err
		}
		o.setStepTxHash(progress.StepApproveNFT, receipt.TxHash.Hex())
		metrics.GasUsed.WithLabelValues(string(evm.OpTransfer)).Observe(float64(receipt.GasUsed))

		if n < len(pending)-1 {
			if err := sleepCtx(ctx, o.cfg.TransferDelay); err != nil {
				return err
			}
		}
	}

	o.setStepMessage(progress.StepApproveNFT, fmt.Sprintf("Transferred %d NFT(s) to bridge custody", len(pending)))
	return nil
}

func (o *Orchestrator) stepCreateCanister(ctx context.Context, r *runState) error {
	if r.costs == nil {
		r.costs = o.quoteMintCosts(ctx, r)
	}

	// The service resolves the pointer to an existing canister before
	// creating one, so re-running for the same collection reuses it.
	canisterID, err := o.ledger.CreateOrGetCanister(ctx, r.pointer, r.defaults, r.costs.CanisterCreationCycles)
	if err != nil {
		return fmt.Errorf("failed to create ckNFT canister: %w", err)
	}

	r.canisterID = canisterID
	for i := range r.assets {
		if r.assets[i].CkCanister == "" {
			r.assets[i].CkCanister = canisterID
		}
	}

	o.setStepMessage(progress.StepCreateCanister, fmt.Sprintf("Canister %s ready", canisterID))
	return nil
}

// stepMintCkNFT processes the mint queue strictly sequentially: each asset is
// submitted and then polled to a terminal outcome before the next asset is
// submitted. The first failure aborts the remainder of the queue, and an
// already submitted asset is never resubmitted, because mint submission is
// not idempotent.
func (o *Orchestrator) stepMintCkNFT(ctx context.Context, r *runState) error {
	cycles := FallbackMintCycles
	if r.costs != nil {
		cycles = r.costs.OperationCycles
	}

	for i := range r.assets {
		if r.results[i].Outcome == AssetCompleted {
			continue
		}
		asset := r.assets[i]
		o.setStepMessage(progress.StepMintCkNFT, fmt.Sprintf("Minting NFT %d/%d", i+1, len(r.assets)))

		if r.submissionIDs[i] == "" {
			req := icledger.MintRequest{
				CkCanister: asset.CkCanister,
				Pointer:    icledger.ContractPointer{Contract: asset.Contract.Hex(), Network: r.network},
				TokenID:    asset.TokenID.String(),
				Owner:      o.wallet.Address().Hex(),
				Recipient:  r.recipient,
			}

			requestID, err := o.ledger.SubmitMint(ctx, req, cycles)
			if err != nil {
				r.results[i].Outcome = AssetFailed
				r.results[i].Err = err
				return fmt.Errorf("mint submission for token %s failed: %w", asset.TokenID, err)
			}
			r.submissionIDs[i] = requestID
		}

		if err := o.awaitSubmission(ctx, r, progress.StepMintCkNFT, i, o.ledger.PollMintStatus); err != nil {
			return err
		}
	}

	o.setStepMessage(progress.StepMintCkNFT, fmt.Sprintf("Minted %d ckNFT(s)", len(r.assets)))
	return nil
}

// stepVerifyMint sweeps the queue for anything not yet terminal, re-polling
// it. After an uninterrupted mint step this is a no-op confirmation; after a
// retry of an expired poll budget it is where the re-poll happens.
func (o *Orchestrator) stepVerifyMint(ctx context.Context, r *runState) error {
	return o.verifySubmissions(ctx, r, progress.StepVerifyMint, o.ledger.PollMintStatus)
}

// awaitSubmission polls one submission to a terminal outcome and records it
// on the asset result. Shared between the mint and cast directions.
func (o *Orchestrator) awaitSubmission(ctx context.Context, r *runState, stepID progress.StepID, i int, pollFn func(context.Context, string) (icledger.Status, error)) error {
	p, err := o.newPoller(stepID)
	if err != nil {
		return err
	}

	requestID := r.submissionIDs[i]
	res, err := p.Await(ctx, func(ctx context.Context) (icledger.Status, error) {
		return pollFn(ctx, requestID)
	})
	if err != nil {
		return err
	}
	metrics.PollAttempts.WithLabelValues(string(res.Outcome)).Observe(float64(res.Attempts))

	switch res.Outcome {
	case poller.OutcomeComplete:
		r.results[i].Outcome = AssetCompleted
		r.results[i].TxRef = res.TxRef
		o.setStepTxHash(stepID, res.TxRef)
	case poller.OutcomeFailed:
		r.results[i].Outcome = AssetFailed
		r.results[i].Err = res.Err
		return res.Err
	case poller.OutcomeStillPending:
		// Not a failure: the operation may still complete ledger-side.
		// The step fails so the UI offers retry (re-polling is safe),
		// while the asset outcome stays distinct from failed.
		r.results[i].Outcome = AssetPending
		return fmt.Errorf("token %s is still pending after %d poll attempts; it may yet complete on the ledger",
			r.assets[i].TokenID, res.Attempts)
	}
	return nil
}

// verifySubmissions re-polls every submitted asset that is not yet terminal.
func (o *Orchestrator) verifySubmissions(ctx context.Context, r *runState, stepID progress.StepID, pollFn func(context.Context, string) (icledger.Status, error)) error {
	for i := range r.assets {
		if r.results[i].Outcome == AssetCompleted || r.submissionIDs[i] == "" {
			continue
		}
		if err := o.awaitSubmission(ctx, r, stepID, i, pollFn); err != nil {
			return err
		}
	}

	o.setStepMessage(stepID, "All submissions verified")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
