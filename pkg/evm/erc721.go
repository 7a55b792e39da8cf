package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// erc721ABI is the subset of the ERC-721 interface the bridge needs.
const erc721ABI = `[
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getApproved","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"approve","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"safeTransferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"transferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// ERC721 is a thin bound-contract wrapper over one NFT collection.
type ERC721 struct {
	address  common.Address
	contract *bind.BoundContract
	client   *Client
}

func newERC721(address common.Address, client *Client) (*ERC721, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-721 ABI: %w", err)
	}

	return &ERC721{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, client.client, client.client, client.client),
		client:   client,
	}, nil
}

// Address returns the collection's contract address.
func (c *ERC721) Address() common.Address {
	return c.address
}

// OwnerOf reads the current owner of a token.
func (c *ERC721) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "ownerOf", tokenID); err != nil {
		return common.Address{}, fmt.Errorf("ownerOf call failed: %w", err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// GetApproved reads the approved operator for a token.
func (c *ERC721) GetApproved(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getApproved", tokenID); err != nil {
		return common.Address{}, fmt.Errorf("getApproved call failed: %w", err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Approve grants transfer rights on a token and waits for the receipt.
func (c *ERC721) Approve(ctx context.Context, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, "approve", to, tokenID)
}

// SafeTransferFrom transfers a token using the receiver-hook variant and waits
// for the receipt.
func (c *ERC721) SafeTransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, "safeTransferFrom", from, to, tokenID)
}

// TransferFrom transfers a token using the plain variant, for contracts that
// predate the safe-transfer hook.
func (c *ERC721) TransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, "transferFrom", from, to, tokenID)
}

// transferCallData packs transferFrom calldata for gas estimation, which
// needs the raw message rather than a bound contract.
func transferCallData(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-721 ABI: %w", err)
	}
	data, err := parsed.Pack("transferFrom", from, to, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	return data, nil
}

func (c *ERC721) transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	auth, err := c.client.GetTransactor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	tx, err := c.contract.Transact(auth, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s transaction failed: %w", method, err)
	}

	receipt, err := c.client.WaitForReceipt(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%s confirmation failed: %w", method, err)
	}
	return receipt, nil
}
