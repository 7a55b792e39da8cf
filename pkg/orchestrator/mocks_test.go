package orchestrator

import (
	"context"
	"math/big"

	"github.com/chainsafe/cknft-bridge/pkg/evm"
	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// mockWallet implements Wallet with fixed facts.
type mockWallet struct {
	connected bool
	address   common.Address
	chainID   int64
}

func (m *mockWallet) Connected() bool         { return m.connected }
func (m *mockWallet) Address() common.Address { return m.address }
func (m *mockWallet) ChainID() int64          { return m.chainID }

// mockDriver implements TransactionDriver. Unset functions fall back to a
// benign default so tests only wire what they assert on.
type mockDriver struct {
	verifyOwnershipFn func(ctx context.Context, contract common.Address, tokenID *big.Int, claimed common.Address) error
	transferAssetFn   func(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) (*types.Receipt, error)
	estimateGasFn     func(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) uint64
	getFeeDataFn      func(ctx context.Context) *evm.FeeData
	checkBalanceFn    func(ctx context.Context, wallet common.Address, need *big.Int) error

	transferCalls int
	estimateCalls int
}

func (m *mockDriver) VerifyOwnership(ctx context.Context, contract common.Address, tokenID *big.Int, claimed common.Address) error {
	if m.verifyOwnershipFn != nil {
		return m.verifyOwnershipFn(ctx, contract, tokenID, claimed)
	}
	return nil
}

func (m *mockDriver) TransferAsset(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) (*types.Receipt, error) {
	m.transferCalls++
	if m.transferAssetFn != nil {
		return m.transferAssetFn(ctx, contract, tokenID, from, to)
	}
	return &types.Receipt{
		Status:  types.ReceiptStatusSuccessful,
		TxHash:  common.HexToHash("0xaaaa"),
		GasUsed: 120_000,
	}, nil
}

func (m *mockDriver) EstimateTransferGas(ctx context.Context, contract common.Address, tokenID *big.Int, from, to common.Address) uint64 {
	m.estimateCalls++
	if m.estimateGasFn != nil {
		return m.estimateGasFn(ctx, contract, tokenID, from, to)
	}
	return evm.FallbackGas(evm.OpTransfer)
}

func (m *mockDriver) GetFeeData(ctx context.Context) *evm.FeeData {
	if m.getFeeDataFn != nil {
		return m.getFeeDataFn(ctx)
	}
	return &evm.FeeData{GasPrice: big.NewInt(1)}
}

func (m *mockDriver) CheckBalance(ctx context.Context, wallet common.Address, need *big.Int) error {
	if m.checkBalanceFn != nil {
		return m.checkBalanceFn(ctx, wallet, need)
	}
	return nil
}

// mockLedger implements LedgerService. Unset functions answer with canned
// happy-path values.
type mockLedger struct {
	quoteCreationFn  func(ctx context.Context, pointer icledger.ContractPointer) (uint64, error)
	quoteCastFn      func(ctx context.Context, ckCanister, contract string, network icledger.Network, tokenID string) (uint64, error)
	approvalAddrFn   func(ctx context.Context, account string, remote icledger.ContractPointer) (string, error)
	fundingAddrFn    func(ctx context.Context, canister string, network icledger.Network) (string, error)
	createCanisterFn func(ctx context.Context, pointer icledger.ContractPointer, defaults icledger.CanisterDefaults, requiredCycles uint64) (string, error)
	submitMintFn     func(ctx context.Context, req icledger.MintRequest, requiredCycles uint64) (string, error)
	pollMintFn       func(ctx context.Context, mintRequestID string) (icledger.Status, error)
	submitCastFn     func(ctx context.Context, req icledger.CastRequest) (string, error)
	pollCastFn       func(ctx context.Context, castID string) (icledger.Status, error)

	mintRequests []icledger.MintRequest
	castRequests []icledger.CastRequest
}

const (
	testCustodyAddr = "0xCCCCcccccCCCCcCCCCCCcCcCccCcCCCcCcccCccC"
	testCanisterID  = "rdmx6-jaaaa-aaaaa-aaadq-cai"
)

func (m *mockLedger) QuoteCanisterCreationCost(ctx context.Context, pointer icledger.ContractPointer) (uint64, error) {
	if m.quoteCreationFn != nil {
		return m.quoteCreationFn(ctx, pointer)
	}
	return 1_000_000_000_000, nil
}

func (m *mockLedger) QuoteCastCost(ctx context.Context, ckCanister, contract string, network icledger.Network, tokenID string) (uint64, error) {
	if m.quoteCastFn != nil {
		return m.quoteCastFn(ctx, ckCanister, contract, network, tokenID)
	}
	return 120_000_000_000, nil
}

func (m *mockLedger) ResolveApprovalAddress(ctx context.Context, account string, remote icledger.ContractPointer) (string, error) {
	if m.approvalAddrFn != nil {
		return m.approvalAddrFn(ctx, account, remote)
	}
	return testCustodyAddr, nil
}

func (m *mockLedger) ResolveFundingAddress(ctx context.Context, canister string, network icledger.Network) (string, error) {
	if m.fundingAddrFn != nil {
		return m.fundingAddrFn(ctx, canister, network)
	}
	return "funding-account-1", nil
}

func (m *mockLedger) CreateOrGetCanister(ctx context.Context, pointer icledger.ContractPointer, defaults icledger.CanisterDefaults, requiredCycles uint64) (string, error) {
	if m.createCanisterFn != nil {
		return m.createCanisterFn(ctx, pointer, defaults, requiredCycles)
	}
	return testCanisterID, nil
}

func (m *mockLedger) SubmitMint(ctx context.Context, req icledger.MintRequest, requiredCycles uint64) (string, error) {
	m.mintRequests = append(m.mintRequests, req)
	if m.submitMintFn != nil {
		return m.submitMintFn(ctx, req, requiredCycles)
	}
	return "mint-" + req.TokenID, nil
}

func (m *mockLedger) PollMintStatus(ctx context.Context, mintRequestID string) (icledger.Status, error) {
	if m.pollMintFn != nil {
		return m.pollMintFn(ctx, mintRequestID)
	}
	return icledger.Status{Phase: icledger.PhaseComplete, TxRef: "tx-" + mintRequestID}, nil
}

func (m *mockLedger) SubmitCast(ctx context.Context, req icledger.CastRequest) (string, error) {
	m.castRequests = append(m.castRequests, req)
	if m.submitCastFn != nil {
		return m.submitCastFn(ctx, req)
	}
	return "cast-" + req.TokenID, nil
}

func (m *mockLedger) PollCastStatus(ctx context.Context, castID string) (icledger.Status, error) {
	if m.pollCastFn != nil {
		return m.pollCastFn(ctx, castID)
	}
	return icledger.Status{Phase: icledger.PhaseComplete, TxRef: "tx-" + castID}, nil
}

// mockRecorder implements RunRecorder in memory.
type mockRecorder struct {
	runs     []*store.BridgeRun
	finished map[string]store.RunStatus
	assets   []*store.BridgeAsset
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{finished: make(map[string]store.RunStatus)}
}

func (m *mockRecorder) CreateRun(_ context.Context, run *store.BridgeRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRecorder) FinishRun(_ context.Context, runID string, status store.RunStatus) error {
	m.finished[runID] = status
	return nil
}

func (m *mockRecorder) RecordAsset(_ context.Context, asset *store.BridgeAsset) error {
	m.assets = append(m.assets, asset)
	return nil
}
