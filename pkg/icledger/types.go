// Package icledger is the typed client for the IC-side bridge orchestrator
// service: canister creation, cost quotation, mint/cast submission and status
// queries. Every call is independently fallible and returns the service's
// closed error taxonomy, see errors.go.
package icledger

// NetworkKind discriminates the supported network variants.
type NetworkKind string

const (
	NetworkIC       NetworkKind = "ic"
	NetworkEthereum NetworkKind = "ethereum"
	NetworkSolana   NetworkKind = "solana"
	NetworkBitcoin  NetworkKind = "bitcoin"
	NetworkOther    NetworkKind = "other"
)

// Network identifies a chain. Only the field matching Kind is meaningful.
type Network struct {
	Kind    NetworkKind `json:"kind"`
	ChainID int64       `json:"chain_id,omitempty"` // ethereum
	Cluster string      `json:"cluster,omitempty"`  // solana
	Name    string      `json:"name,omitempty"`     // other
}

// EthereumNetwork builds the common case.
func EthereumNetwork(chainID int64) Network {
	return Network{Kind: NetworkEthereum, ChainID: chainID}
}

// ContractPointer names a collection contract on a specific network. It is
// the idempotency key for canister creation: the same pointer always resolves
// to the same ckNFT canister.
type ContractPointer struct {
	Contract string  `json:"contract"`
	Network  Network `json:"network"`
}

// CanisterDefaults seed a freshly created ckNFT canister.
type CanisterDefaults struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// MintRequest submits one asset for minting into a ckNFT canister.
type MintRequest struct {
	CkCanister string          `json:"ck_canister"`
	Pointer    ContractPointer `json:"pointer"`
	TokenID    string          `json:"token_id"`
	Owner      string          `json:"owner"`     // source-chain owner address
	Recipient  string          `json:"recipient"` // destination principal
}

// CastRequest submits one ledger-native asset for casting back to an EVM chain.
type CastRequest struct {
	CkCanister         string  `json:"ck_canister"`
	TokenID            string  `json:"token_id"`
	DestinationNetwork Network `json:"destination_network"`
	DestinationAddress string  `json:"destination_address"`
}

// Phase is one leg of the mint/cast progression. Intermediate phases may be
// re-observed across polls; Complete and Failed are terminal.
type Phase string

const (
	PhaseCheckingOwner      Phase = "checking_owner"
	PhaseRetrievingMetadata Phase = "retrieving_metadata"
	PhaseTransferring       Phase = "transferring"
	PhaseMinting            Phase = "minting"
	PhaseComplete           Phase = "complete"
	PhaseFailed             Phase = "failed"
)

// Status is the polled state of a mint or cast request.
type Status struct {
	Phase Phase `json:"phase"`
	// TxRef is the ledger/chain transaction reference, set iff Phase is Complete.
	TxRef string `json:"tx_ref,omitempty"`
	// Err carries the typed failure, set iff Phase is Failed.
	Err *ServiceError `json:"error,omitempty"`
}

// Terminal reports whether the status ends the poll loop.
func (s Status) Terminal() bool {
	return s.Phase == PhaseComplete || s.Phase == PhaseFailed
}

// Message maps an intermediate phase to user-facing progress text.
func (s Status) Message() string {
	switch s.Phase {
	case PhaseCheckingOwner:
		return "Verifying ownership on the source chain"
	case PhaseRetrievingMetadata:
		return "Retrieving NFT metadata"
	case PhaseTransferring:
		return "Transferring the NFT into bridge custody"
	case PhaseMinting:
		return "Minting the ckNFT"
	case PhaseComplete:
		return "Mint complete"
	case PhaseFailed:
		return "Mint failed"
	default:
		return string(s.Phase)
	}
}
