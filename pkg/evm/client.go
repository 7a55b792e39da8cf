package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainsafe/cknft-bridge/pkg/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client is the wallet/provider session for the source EVM chain. Its
// lifecycle (Connect/Close) is owned by the orchestrator; the driver receives
// it explicitly instead of reading a process-global provider.
type Client struct {
	config     *config.EVMConfig
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger
}

// Connect dials the configured RPC endpoint, loads the wallet key and verifies
// the provider is on the expected chain.
func Connect(ctx context.Context, cfg *config.EVMConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: expected chain %d, provider reports %s", ErrWrongNetwork, cfg.ChainID, chainID)
	}

	privateKey, err := crypto.HexToECDSA(cfg.WalletPrivateKey)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load wallet key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	logger.Info("Connected to EVM chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("wallet", address.Hex()))

	return &Client{
		config:     cfg,
		client:     client,
		privateKey: privateKey,
		address:    address,
		logger:     logger,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Address returns the active wallet address.
func (c *Client) Address() common.Address {
	return c.address
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() int64 {
	return c.config.ChainID
}

// OpenCollection binds the ERC-721 contract at the given address.
func (c *Client) OpenCollection(address common.Address) (Collection, error) {
	return newERC721(address, c)
}

// GetTransactor returns a transaction signer for the wallet key. Nonce
// management is delegated to the provider's pending-nonce view.
func (c *Client) GetTransactor(ctx context.Context) (*bind.TransactOpts, error) {
	chainID := big.NewInt(c.config.ChainID)

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	auth.Context = ctx
	auth.Nonce = big.NewInt(int64(nonce))
	auth.GasLimit = c.config.GasLimit

	if c.config.MaxGasPrice != "" {
		maxGasPrice := new(big.Int)
		maxGasPrice.SetString(c.config.MaxGasPrice, 10)

		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}

		if gasPrice.Cmp(maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", maxGasPrice.String()))
			auth.GasPrice = maxGasPrice
		} else {
			auth.GasPrice = gasPrice
		}
	}

	return auth, nil
}

// WaitForReceipt blocks until the transaction is mined or the configured
// receipt timeout elapses, polling at the configured receipt interval.
func (c *Client) WaitForReceipt(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return c.waitForReceipt(ctx, c.client.TransactionReceipt, tx.Hash())
}

// receiptFetcher is the provider read waitForReceipt polls.
type receiptFetcher func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

func (c *Client) waitForReceipt(ctx context.Context, fetch receiptFetcher, txHash common.Hash) (*types.Receipt, error) {
	timeout := c.config.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	interval := c.config.ReceiptInterval
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := fetch(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		// Transient RPC errors are retried like a not-yet-mined transaction;
		// only the timeout is terminal.
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("receipt retrieval failed, retrying",
				zap.String("tx_hash", txHash.Hex()),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed waiting for receipt of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// SuggestGasPrice proxies the provider's gas price oracle.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasPrice(ctx)
}

// EstimateGas proxies the provider's gas estimator.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// BalanceAt reads the latest native balance of an address.
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.client.BalanceAt(ctx, address, nil)
}
