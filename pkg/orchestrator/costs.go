package orchestrator

import (
	"context"
	"math/big"

	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fallback estimates substituted when a quotation call fails. Deliberately
// generous so an under-quoted run fails at submission, not mid-flight.
const (
	FallbackCanisterCreationCycles uint64 = 2_000_000_000_000 // 2T cycles
	FallbackMintCycles             uint64 = 100_000_000_000   // 100B cycles
	FallbackCastCycles             uint64 = 150_000_000_000   // 150B cycles
)

// CostComponent is one independently quoted (and independently fallible)
// slice of the total.
type CostComponent struct {
	Name   string
	Amount decimal.Decimal
	Unit   string // "cycles" or "wei"
	// Estimated is true when the quotation call failed and the typed
	// fallback estimate was substituted.
	Estimated bool
}

// CostBreakdown is the ephemeral quote shown before submission. Total sums
// the cycle components only; the gas fee is denominated in native units and
// reported separately.
type CostBreakdown struct {
	Components []CostComponent
	// CanisterCreationCycles and OperationCycles feed the create and submit
	// calls as required_cycles.
	CanisterCreationCycles uint64
	OperationCycles        uint64
	// GasFeeWei is the estimated source-chain fee for the whole run.
	GasFeeWei *big.Int
}

// TotalCycles sums the resolved cycle components.
func (c *CostBreakdown) TotalCycles() decimal.Decimal {
	total := decimal.Zero
	for _, comp := range c.Components {
		if comp.Unit == "cycles" {
			total = total.Add(comp.Amount)
		}
	}
	return total
}

// Estimated reports whether any component fell back to an estimate.
func (c *CostBreakdown) Estimated() bool {
	for _, comp := range c.Components {
		if comp.Estimated {
			return true
		}
	}
	return false
}

// quoteMintCosts builds the cost breakdown for a source-to-ledger run:
// canister creation, per-asset mint fees, and the source-chain gas for the
// transfers. Each component falls back independently.
func (o *Orchestrator) quoteMintCosts(ctx context.Context, r *runState) *CostBreakdown {
	breakdown := &CostBreakdown{}

	creation, err := o.ledger.QuoteCanisterCreationCost(ctx, r.pointer)
	estimated := false
	if err != nil {
		o.logger.Warn("canister creation quote failed, using fallback estimate", zap.Error(err))
		creation = FallbackCanisterCreationCycles
		estimated = true
	}
	breakdown.CanisterCreationCycles = creation
	breakdown.Components = append(breakdown.Components, CostComponent{
		Name:      "canister_creation",
		Amount:    decimal.NewFromUint64(creation),
		Unit:      "cycles",
		Estimated: estimated,
	})

	// No mint-fee quotation exists on the service; the fallback constant is
	// the estimate by definition.
	breakdown.OperationCycles = FallbackMintCycles
	breakdown.Components = append(breakdown.Components, CostComponent{
		Name:      "mint_fee",
		Amount:    decimal.NewFromUint64(FallbackMintCycles).Mul(decimal.NewFromInt(int64(len(r.assets)))),
		Unit:      "cycles",
		Estimated: true,
	})

	breakdown.GasFeeWei = o.quoteGasFee(ctx, r.assets, o.wallet.Address(), r.custody)
	breakdown.Components = append(breakdown.Components, CostComponent{
		Name:      "gas_fee",
		Amount:    decimal.NewFromBigInt(breakdown.GasFeeWei, 0),
		Unit:      "wei",
		Estimated: true, // always an estimate until mined
	})

	return breakdown
}

// quoteCastCosts builds the cost breakdown for a ledger-to-source run.
func (o *Orchestrator) quoteCastCosts(ctx context.Context, assets []Asset, network icledger.Network) *CostBreakdown {
	breakdown := &CostBreakdown{GasFeeWei: big.NewInt(0)}

	total := uint64(0)
	estimated := false
	for _, asset := range assets {
		cycles, err := o.ledger.QuoteCastCost(ctx, asset.CkCanister, asset.Contract.Hex(), network, asset.TokenID.String())
		if err != nil {
			o.logger.Warn("cast quote failed, using fallback estimate",
				zap.String("token_id", asset.TokenID.String()),
				zap.Error(err))
			cycles = FallbackCastCycles
			estimated = true
		}
		total += cycles
	}
	if len(assets) > 0 {
		breakdown.OperationCycles = total / uint64(len(assets))
	}
	breakdown.Components = append(breakdown.Components, CostComponent{
		Name:      "cast_fee",
		Amount:    decimal.NewFromUint64(total),
		Unit:      "cycles",
		Estimated: estimated,
	})

	return breakdown
}

// quoteGasFee estimates the native fee for the custody transfers: one
// best-effort provider estimate per asset, with the fixed per-operation
// fallback substituted for any asset the provider cannot estimate.
func (o *Orchestrator) quoteGasFee(ctx context.Context, assets []Asset, from, to common.Address) *big.Int {
	if len(assets) == 0 {
		return big.NewInt(0)
	}

	fees := o.driver.GetFeeData(ctx)

	total := new(big.Int)
	for _, asset := range assets {
		gas := o.driver.EstimateTransferGas(ctx, asset.Contract, asset.TokenID, from, to)
		total.Add(total, new(big.Int).SetUint64(gas))
	}
	return total.Mul(total, fees.GasPrice)
}
