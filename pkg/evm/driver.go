package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// OpKind names the operation classes the driver estimates gas for.
type OpKind string

const (
	OpDeploy   OpKind = "deploy"
	OpMint     OpKind = "mint"
	OpTransfer OpKind = "transfer"
)

// Conservative gas fallbacks used when provider estimation is unavailable.
var fallbackGas = map[OpKind]uint64{
	OpDeploy:   3_000_000,
	OpMint:     300_000,
	OpTransfer: 150_000,
}

// FallbackGasPriceWei is the fixed gas price assumed when the provider does
// not answer its fee oracle. 20 gwei.
var FallbackGasPriceWei = big.NewInt(20_000_000_000)

// Backend is the provider surface the driver reads fees and balances from.
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
}

// Collection is the per-contract surface the driver transfers through.
type Collection interface {
	Address() common.Address
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	SafeTransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error)
	TransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error)
}

// CollectionOpener binds an NFT contract address to a Collection.
type CollectionOpener interface {
	OpenCollection(address common.Address) (Collection, error)
}

// FeeData is a single fee read with fallback semantics, see GetFeeData.
type FeeData struct {
	GasPrice *big.Int
	// Fallback is true when the provider did not answer and the fixed
	// fallback price was substituted.
	Fallback bool
}

// Driver performs the source-chain operations required before a mint or cast
// can be submitted. All transaction methods block until confirmation.
type Driver struct {
	backend Backend
	opener  CollectionOpener
	logger  *zap.Logger
}

// NewDriver wires the driver to an explicit provider session.
func NewDriver(backend Backend, opener CollectionOpener, logger *zap.Logger) *Driver {
	return &Driver{
		backend: backend,
		opener:  opener,
		logger:  logger,
	}
}

// VerifyOwnership reads the current on-chain owner and compares it
// case-insensitively to the claimed address. Callers run this immediately
// before a transfer so an external transfer between selection and submission
// is caught.
func (d *Driver) VerifyOwnership(ctx context.Context, contract common.Address, tokenID *big.Int, claimed common.Address) error {
	col, err := d.opener.OpenCollection(contract)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", contract.Hex(), err)
	}

	actual, err := col.OwnerOf(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to read owner of token %s: %w", tokenID, err)
	}

	if !strings.EqualFold(actual.Hex(), claimed.Hex()) {
		return &OwnershipMismatchError{
			Contract: contract,
			TokenID:  tokenID,
			Claimed:  claimed,
			Actual:   actual,
		}
	}
	return nil
}

// TransferAsset moves a token to the bridge custody address. It attempts the
// safe-transfer variant first and falls back to the plain transfer when the
// contract lacks the receiver hook; revert reasons are classified into a
// TransferError.
func (d *Driver) TransferAsset(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) (*types.Receipt, error) {
	col, err := d.opener.OpenCollection(contract)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", contract.Hex(), err)
	}

	receipt, err := col.SafeTransferFrom(ctx, from, to, tokenID)
	if err != nil {
		d.logger.Warn("safeTransferFrom failed, retrying with transferFrom",
			zap.String("contract", contract.Hex()),
			zap.String("token_id", tokenID.String()),
			zap.Error(err))

		receipt, err = col.TransferFrom(ctx, from, to, tokenID)
		if err != nil {
			return nil, classifyRevert(err)
		}
	}

	if receipt != nil && receipt.Status == types.ReceiptStatusFailed {
		return nil, &TransferError{Kind: RevertOther, Reason: "transaction reverted on-chain"}
	}

	d.logger.Info("NFT transferred to bridge custody",
		zap.String("contract", contract.Hex()),
		zap.String("token_id", tokenID.String()),
		zap.String("tx_hash", receipt.TxHash.Hex()))

	return receipt, nil
}

// EstimateGas asks the provider for a gas estimate. Failures come back wrapped
// in ErrEstimationFailed; callers substitute FallbackGas for the operation.
func (d *Driver) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := d.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}
	return gas, nil
}

// EstimateTransferGas asks the provider what moving one token costs,
// substituting the conservative transfer fallback when estimation fails
// (no oracle, or the provider simulates a revert).
func (d *Driver) EstimateTransferGas(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) uint64 {
	data, err := transferCallData(from, to, tokenID)
	if err != nil {
		return FallbackGas(OpTransfer)
	}

	gas, err := d.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: data})
	if err != nil {
		d.logger.Warn("transfer gas estimation failed, using fallback",
			zap.String("contract", contract.Hex()),
			zap.String("token_id", tokenID.String()),
			zap.Error(err))
		return FallbackGas(OpTransfer)
	}
	return gas
}

// FallbackGas returns the conservative gas constant for an operation kind.
func FallbackGas(kind OpKind) uint64 {
	if gas, ok := fallbackGas[kind]; ok {
		return gas
	}
	return fallbackGas[OpTransfer]
}

// GetFeeData performs a single fee read, substituting the fixed fallback
// price when the provider has no oracle (e.g. no injected wallet).
func (d *Driver) GetFeeData(ctx context.Context) *FeeData {
	price, err := d.backend.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() == 0 {
		d.logger.Warn("gas price oracle unavailable, using fallback", zap.Error(err))
		return &FeeData{GasPrice: new(big.Int).Set(FallbackGasPriceWei), Fallback: true}
	}
	return &FeeData{GasPrice: price}
}

// CheckBalance verifies the wallet's native balance covers the given fee
// requirement, returning InsufficientFundsError when it does not.
func (d *Driver) CheckBalance(ctx context.Context, wallet common.Address, need *big.Int) error {
	have, err := d.backend.BalanceAt(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", wallet.Hex(), err)
	}
	if have.Cmp(need) < 0 {
		return &InsufficientFundsError{Have: have, Need: need}
	}
	return nil
}
