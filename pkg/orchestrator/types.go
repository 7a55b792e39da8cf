package orchestrator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset is one NFT selected for a bridge run. TokenID is preserved verbatim
// across the bridge: the ledger-side representation carries the same id.
type Asset struct {
	// Contract is the source-chain collection address (mint direction) or
	// the original collection the ckNFT wraps (cast direction).
	Contract common.Address
	TokenID  *big.Int
	// Owner is the address believed to hold the asset at selection time.
	// Ownership is re-verified immediately before any transfer.
	Owner common.Address
	// CkCanister is the ledger-side canister holding the asset. Required for
	// the cast direction, resolved during the run for the mint direction.
	CkCanister string
}

// AssetOutcome is the per-asset disposition of a run.
type AssetOutcome string

const (
	AssetCompleted AssetOutcome = "completed"
	AssetFailed    AssetOutcome = "failed"
	// AssetPending means the poll budget expired without a terminal status.
	// Distinct from failure: the mint may still complete ledger-side.
	AssetPending AssetOutcome = "pending"
	// AssetNotAttempted marks queue entries after an aborting failure.
	AssetNotAttempted AssetOutcome = "not_attempted"
)

// AssetResult reports one asset's outcome.
type AssetResult struct {
	TokenID  string
	Contract string
	Outcome  AssetOutcome
	// TxRef is the destination-side transaction reference on completion.
	TxRef string
	Err   error
}

// RunResult is the terminal report of one bridge run.
type RunResult struct {
	RunID     string
	Success   bool
	Assets    []AssetResult
	// FailedStep names the step that stopped the run, empty on success.
	FailedStep string
}
