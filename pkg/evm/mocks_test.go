package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MockBackend is a func-field mock of Backend
type MockBackend struct {
	SuggestGasPriceFunc func(ctx context.Context) (*big.Int, error)
	EstimateGasFunc     func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAtFunc       func(ctx context.Context, address common.Address) (*big.Int, error)
}

func (m *MockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasPriceFunc != nil {
		return m.SuggestGasPriceFunc(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (m *MockBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.EstimateGasFunc != nil {
		return m.EstimateGasFunc(ctx, msg)
	}
	return 21000, nil
}

func (m *MockBackend) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	if m.BalanceAtFunc != nil {
		return m.BalanceAtFunc(ctx, address)
	}
	return big.NewInt(0), nil
}

// MockCollection is a func-field mock of Collection
type MockCollection struct {
	Addr                 common.Address
	OwnerOfFunc          func(ctx context.Context, tokenID *big.Int) (common.Address, error)
	SafeTransferFromFunc func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error)
	TransferFromFunc     func(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error)
}

func (m *MockCollection) Address() common.Address {
	return m.Addr
}

func (m *MockCollection) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	if m.OwnerOfFunc != nil {
		return m.OwnerOfFunc(ctx, tokenID)
	}
	return common.Address{}, nil
}

func (m *MockCollection) SafeTransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	if m.SafeTransferFromFunc != nil {
		return m.SafeTransferFromFunc(ctx, from, to, tokenID)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (m *MockCollection) TransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	if m.TransferFromFunc != nil {
		return m.TransferFromFunc(ctx, from, to, tokenID)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

// MockOpener returns a fixed collection for any address
type MockOpener struct {
	Collection Collection
	Err        error
}

func (m *MockOpener) OpenCollection(address common.Address) (Collection, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Collection, nil
}
