package orchestrator

import (
	"context"
	"fmt"

	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/progress"
)

// The cast direction: a ledger-native ckNFT is cast back to the EVM chain.
// The wallet is the destination, so no custody transfer leg exists; the cost
// of the cast is paid in cycles by the canister.

func (o *Orchestrator) stepQuoteCastCost(ctx context.Context, r *runState) error {
	r.costs = o.quoteCastCosts(ctx, r.assets, r.network)

	msg := fmt.Sprintf("Cast will cost %s cycles", r.costs.TotalCycles())
	if r.costs.Estimated() {
		msg += " (estimated)"
	}
	o.setStepMessage(progress.StepQuoteCastCost, msg)
	return nil
}

func (o *Orchestrator) stepFundCanister(ctx context.Context, r *runState) error {
	funding, err := o.ledger.ResolveFundingAddress(ctx, r.assets[0].CkCanister, r.network)
	if err != nil {
		return fmt.Errorf("failed to resolve funding address: %w", err)
	}

	o.setStepMessage(progress.StepFundCanister, fmt.Sprintf("Funding address %s resolved; top up if the cast is rejected for cycles", funding))
	return nil
}

// stepSubmitCast processes the cast queue strictly sequentially, each asset
// submitted and polled to a terminal outcome before the next one goes out.
// The first failure aborts the remainder, and submitted casts are never
// resubmitted.
func (o *Orchestrator) stepSubmitCast(ctx context.Context, r *runState) error {
	for i := range r.assets {
		if r.results[i].Outcome == AssetCompleted {
			continue
		}
		asset := r.assets[i]
		o.setStepMessage(progress.StepSubmitCast, fmt.Sprintf("Casting NFT %d/%d", i+1, len(r.assets)))

		if r.submissionIDs[i] == "" {
			castID, err := o.ledger.SubmitCast(ctx, icledger.CastRequest{
				CkCanister:         asset.CkCanister,
				TokenID:            asset.TokenID.String(),
				DestinationNetwork: r.network,
				DestinationAddress: o.wallet.Address().Hex(),
			})
			if err != nil {
				r.results[i].Outcome = AssetFailed
				r.results[i].Err = err
				return fmt.Errorf("cast submission for token %s failed: %w", asset.TokenID, err)
			}
			r.submissionIDs[i] = castID
		}

		if err := o.awaitSubmission(ctx, r, progress.StepSubmitCast, i, o.ledger.PollCastStatus); err != nil {
			return err
		}
	}

	o.setStepMessage(progress.StepSubmitCast, fmt.Sprintf("Cast %d NFT(s)", len(r.assets)))
	return nil
}

func (o *Orchestrator) stepVerifyCast(ctx context.Context, r *runState) error {
	return o.verifySubmissions(ctx, r, progress.StepVerifyCast, o.ledger.PollCastStatus)
}
