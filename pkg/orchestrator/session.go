package orchestrator

import (
	"context"
	"fmt"

	"github.com/chainsafe/cknft-bridge/pkg/config"
	"github.com/chainsafe/cknft-bridge/pkg/evm"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Session owns the wallet/provider connection lifecycle. The driver and
// orchestrator receive the session explicitly; nothing reads a process-global
// provider handle.
type Session struct {
	cfg    *config.EVMConfig
	logger *zap.Logger
	client *evm.Client
}

// NewSession creates a disconnected session.
func NewSession(cfg *config.EVMConfig, logger *zap.Logger) *Session {
	return &Session{cfg: cfg, logger: logger}
}

// Connect dials the provider and verifies the chain id. Reconnecting an
// already connected session closes the previous connection first.
func (s *Session) Connect(ctx context.Context) error {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}

	client, err := evm.Connect(ctx, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("session connect failed: %w", err)
	}
	s.client = client
	return nil
}

// Connected reports whether the session holds a live connection.
func (s *Session) Connected() bool {
	return s.client != nil
}

// Address returns the active wallet address, zero when disconnected.
func (s *Session) Address() common.Address {
	if s.client == nil {
		return common.Address{}
	}
	return s.client.Address()
}

// ChainID returns the connected chain id, zero when disconnected.
func (s *Session) ChainID() int64 {
	if s.client == nil {
		return 0
	}
	return s.client.ChainID()
}

// Client exposes the underlying EVM client for driver construction.
func (s *Session) Client() *evm.Client {
	return s.client
}

// Close disconnects the session.
func (s *Session) Close() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}
