package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOwner    = common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	testBridge   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestDriver(backend Backend, col Collection) *Driver {
	return NewDriver(backend, &MockOpener{Collection: col}, zap.NewNop())
}

func TestVerifyOwnership_CaseInsensitiveMatch(t *testing.T) {
	col := &MockCollection{
		Addr: testContract,
		OwnerOfFunc: func(ctx context.Context, tokenID *big.Int) (common.Address, error) {
			return testOwner, nil
		},
	}
	driver := newTestDriver(&MockBackend{}, col)

	// Claimed address differs only in hex casing.
	claimed := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err := driver.VerifyOwnership(context.Background(), testContract, big.NewInt(7), claimed); err != nil {
		t.Errorf("expected ownership match, got %v", err)
	}
}

func TestVerifyOwnership_Mismatch(t *testing.T) {
	col := &MockCollection{
		Addr: testContract,
		OwnerOfFunc: func(ctx context.Context, tokenID *big.Int) (common.Address, error) {
			return testBridge, nil
		},
	}
	driver := newTestDriver(&MockBackend{}, col)

	err := driver.VerifyOwnership(context.Background(), testContract, big.NewInt(7), testOwner)
	var mismatch *OwnershipMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected OwnershipMismatchError, got %v", err)
	}
	if mismatch.Actual != testBridge {
		t.Errorf("expected actual owner %s, got %s", testBridge.Hex(), mismatch.Actual.Hex())
	}
}

func TestTransferAsset_SafeTransferSucceeds(t *testing.T) {
	plainCalled := false
	col := &MockCollection{
		Addr: testContract,
		SafeTransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
			return &types.Receipt{
				Status: types.ReceiptStatusSuccessful,
				TxHash: common.HexToHash("0xbeef"),
			}, nil
		},
		TransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
			plainCalled = true
			return nil, errors.New("should not be called")
		},
	}
	driver := newTestDriver(&MockBackend{}, col)

	receipt, err := driver.TransferAsset(context.Background(), testContract, big.NewInt(1), testOwner, testBridge)
	if err != nil {
		t.Fatalf("TransferAsset failed: %v", err)
	}
	if receipt.TxHash != common.HexToHash("0xbeef") {
		t.Errorf("unexpected receipt hash %s", receipt.TxHash.Hex())
	}
	if plainCalled {
		t.Error("plain transferFrom should not run when safeTransferFrom succeeds")
	}
}

func TestTransferAsset_FallsBackToPlainTransfer(t *testing.T) {
	col := &MockCollection{
		Addr: testContract,
		SafeTransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
			return nil, errors.New("execution reverted: unknown selector")
		},
		TransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.HexToHash("0xcafe")}, nil
		},
	}
	driver := newTestDriver(&MockBackend{}, col)

	receipt, err := driver.TransferAsset(context.Background(), testContract, big.NewInt(1), testOwner, testBridge)
	if err != nil {
		t.Fatalf("expected fallback transfer to succeed, got %v", err)
	}
	if receipt.TxHash != common.HexToHash("0xcafe") {
		t.Errorf("unexpected receipt hash %s", receipt.TxHash.Hex())
	}
}

func TestTransferAsset_ClassifiesRevertReason(t *testing.T) {
	tests := []struct {
		name   string
		revert string
		want   RevertKind
	}{
		{"not approved", "execution reverted: ERC721: caller is not token owner or approved", RevertNotApprovedOrOwner},
		{"incorrect owner", "execution reverted: ERC721: transfer from incorrect owner", RevertIncorrectOwner},
		{"zero address", "execution reverted: ERC721: transfer to the zero address", RevertZeroAddress},
		{"unknown", "execution reverted: some custom reason", RevertOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := &MockCollection{
				Addr: testContract,
				SafeTransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
					return nil, errors.New(tt.revert)
				},
				TransferFromFunc: func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
					return nil, errors.New(tt.revert)
				},
			}
			driver := newTestDriver(&MockBackend{}, col)

			_, err := driver.TransferAsset(context.Background(), testContract, big.NewInt(1), testOwner, testBridge)
			var transferErr *TransferError
			if !errors.As(err, &transferErr) {
				t.Fatalf("expected TransferError, got %v", err)
			}
			if transferErr.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, transferErr.Kind)
			}
		})
	}
}

func TestEstimateGas_WrapsFailure(t *testing.T) {
	backend := &MockBackend{
		EstimateGasFunc: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 0, errors.New("no injected provider")
		},
	}
	driver := newTestDriver(backend, &MockCollection{})

	_, err := driver.EstimateGas(context.Background(), ethereum.CallMsg{})
	if !errors.Is(err, ErrEstimationFailed) {
		t.Errorf("expected ErrEstimationFailed, got %v", err)
	}

	if gas := FallbackGas(OpMint); gas != 300_000 {
		t.Errorf("unexpected mint fallback gas %d", gas)
	}
	if gas := FallbackGas("unknown-op"); gas != FallbackGas(OpTransfer) {
		t.Errorf("unknown op kind should use the transfer fallback, got %d", gas)
	}
}

func TestEstimateTransferGas(t *testing.T) {
	backend := &MockBackend{
		EstimateGasFunc: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			if msg.To == nil || *msg.To != testContract {
				t.Errorf("estimate targeted %v, want %s", msg.To, testContract.Hex())
			}
			if len(msg.Data) == 0 {
				t.Error("expected packed transferFrom calldata")
			}
			return 64_000, nil
		},
	}
	driver := newTestDriver(backend, &MockCollection{})

	gas := driver.EstimateTransferGas(context.Background(), testContract, big.NewInt(7), testOwner, testBridge)
	if gas != 64_000 {
		t.Errorf("expected provider estimate 64000, got %d", gas)
	}

	backend.EstimateGasFunc = func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
		return 0, errors.New("execution reverted")
	}
	gas = driver.EstimateTransferGas(context.Background(), testContract, big.NewInt(7), testOwner, testBridge)
	if gas != FallbackGas(OpTransfer) {
		t.Errorf("expected transfer fallback on estimation failure, got %d", gas)
	}
}

func TestGetFeeData_Fallback(t *testing.T) {
	backend := &MockBackend{
		SuggestGasPriceFunc: func(ctx context.Context) (*big.Int, error) {
			return nil, errors.New("oracle unavailable")
		},
	}
	driver := newTestDriver(backend, &MockCollection{})

	fees := driver.GetFeeData(context.Background())
	if !fees.Fallback {
		t.Error("expected fallback fee data")
	}
	if fees.GasPrice.Cmp(FallbackGasPriceWei) != 0 {
		t.Errorf("expected fallback gas price %s, got %s", FallbackGasPriceWei, fees.GasPrice)
	}
}

func TestCheckBalance(t *testing.T) {
	backend := &MockBackend{
		BalanceAtFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
			return big.NewInt(100), nil
		},
	}
	driver := newTestDriver(backend, &MockCollection{})

	if err := driver.CheckBalance(context.Background(), testOwner, big.NewInt(100)); err != nil {
		t.Errorf("expected balance to cover need, got %v", err)
	}

	err := driver.CheckBalance(context.Background(), testOwner, big.NewInt(101))
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Need.Int64() != 101 || insufficient.Have.Int64() != 100 {
		t.Errorf("unexpected have/need: %+v", insufficient)
	}
}
