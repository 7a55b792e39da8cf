package progress

import "time"

// Direction fixes which stage template a bridge run uses.
type Direction string

const (
	// DirectionSourceToLedger bridges an EVM-native NFT into a ckNFT canister (mint).
	DirectionSourceToLedger Direction = "source_to_ledger"
	// DirectionLedgerToSource bridges a ledger-native NFT back to an EVM chain (cast).
	DirectionLedgerToSource Direction = "ledger_to_source"
)

// StepStatus represents the lifecycle state of a single step.
//
// Transitions: pending -> loading -> completed | failed; failed -> pending via
// retry; pending -> skipped as an explicit operator override. A completed step
// never transitions again.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepLoading   StepStatus = "loading"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepID identifies a step within a direction template. Step ids are the
// retry/lookup keys shared with the orchestrator, so they live in one
// registry instead of free-form strings.
type StepID string

const (
	StepConnectWallet  StepID = "connect-evm-wallet"
	StepApproveNFT     StepID = "approve-nft-transfer"
	StepCreateCanister StepID = "create-cknft-canister"
	StepMintCkNFT      StepID = "mint-cknft"
	StepVerifyMint     StepID = "verify-mint-complete"

	StepQuoteCastCost StepID = "quote-cast-cost"
	StepFundCanister  StepID = "fund-cknft-canister"
	StepSubmitCast    StepID = "submit-cast"
	StepVerifyCast    StepID = "verify-cast-complete"
)

// StageID identifies a stage within a direction template.
type StageID string

const (
	StageWallet   StageID = "wallet"
	StageTransfer StageID = "transfer"
	StageCanister StageID = "canister"
	StageMint     StageID = "mint"
	StageCast     StageID = "cast"
)

// Step is the atomic unit of progress and retry.
type Step struct {
	ID          StepID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	// Message is the live progress text for steps that aggregate a sub-loop
	// (e.g. "Minting NFT 2/5").
	Message string `json:"message,omitempty"`
	// Error is set iff Status is StepFailed.
	Error string `json:"error,omitempty"`
	// TxHash references the chain or ledger transaction the step produced.
	TxHash string `json:"tx_hash,omitempty"`
	// Retryable is fixed at template creation and controls whether a failed
	// step exposes a retry action.
	Retryable bool `json:"retryable"`
	// EstimatedDuration is advisory, display-only.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
}

// Stage groups related steps. Status is derived from the steps, see TrafficLight.
type Stage struct {
	ID          StageID `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Collapsed   bool    `json:"collapsed"`
	Steps       []Step  `json:"steps"`
}

// BridgeProgress represents one bridge attempt as an ordered set of stages.
// Values are immutable: every update function returns a fresh copy and never
// touches its input, so a UI may hold a reference across updates safely.
type BridgeProgress struct {
	Direction Direction `json:"direction"`
	Stages    []Stage   `json:"stages"`
}

// New builds the fixed stage/step template for the given direction with every
// step pending. Calling it twice yields structurally identical values.
func New(direction Direction) *BridgeProgress {
	if direction == DirectionLedgerToSource {
		return &BridgeProgress{
			Direction: direction,
			Stages: []Stage{
				{
					ID:          StageWallet,
					Title:       "Connect wallet",
					Description: "Connect the destination EVM wallet",
					Steps: []Step{
						step(StepConnectWallet, "Connect EVM wallet", "Verify wallet connection and target network", true, 5*time.Second),
					},
				},
				{
					ID:          StageCanister,
					Title:       "Prepare canister",
					Description: "Quote and fund the cast operation",
					Steps: []Step{
						step(StepQuoteCastCost, "Quote cast cost", "Fetch the cycles cost of casting to the EVM chain", true, 10*time.Second),
						step(StepFundCanister, "Fund canister", "Top up the ckNFT canister with cycles if needed", true, 30*time.Second),
					},
				},
				{
					ID:          StageCast,
					Title:       "Cast to EVM",
					Description: "Submit the cast and wait for the EVM transaction",
					Steps: []Step{
						step(StepSubmitCast, "Submit cast", "Submit the cast request to the ckNFT canister", true, 30*time.Second),
						step(StepVerifyCast, "Verify cast", "Wait for the cast to finalize on the EVM chain", true, 60*time.Second),
					},
				},
			},
		}
	}

	return &BridgeProgress{
		Direction: DirectionSourceToLedger,
		Stages: []Stage{
			{
				ID:          StageWallet,
				Title:       "Connect wallet",
				Description: "Connect the source EVM wallet",
				Steps: []Step{
					step(StepConnectWallet, "Connect EVM wallet", "Verify wallet connection and source network", true, 5*time.Second),
				},
			},
			{
				ID:          StageTransfer,
				Title:       "Transfer NFTs",
				Description: "Move selected NFTs to the bridge custody address",
				Steps: []Step{
					step(StepApproveNFT, "Approve NFT transfer", "Verify ownership and transfer NFTs to the bridge address", true, 60*time.Second),
				},
			},
			{
				ID:          StageCanister,
				Title:       "Create canister",
				Description: "Create or reuse the ckNFT canister for this collection",
				Steps: []Step{
					step(StepCreateCanister, "Create ckNFT canister", "Create or look up the canister for the source collection", true, 45*time.Second),
				},
			},
			{
				ID:          StageMint,
				Title:       "Mint ckNFT",
				Description: "Mint the ledger-side representation and verify completion",
				Steps: []Step{
					step(StepMintCkNFT, "Mint ckNFT", "Submit mint requests for each selected NFT", true, 60*time.Second),
					step(StepVerifyMint, "Verify mint", "Poll the canister until the mint is finalized", true, 60*time.Second),
				},
			},
		},
	}
}

func step(id StepID, title, description string, retryable bool, estimated time.Duration) Step {
	return Step{
		ID:                id,
		Title:             title,
		Description:       description,
		Status:            StepPending,
		Retryable:         retryable,
		EstimatedDuration: estimated,
	}
}

// Steps returns the steps of every stage flattened in execution order.
func (p *BridgeProgress) Steps() []Step {
	var out []Step
	for _, stage := range p.Stages {
		out = append(out, stage.Steps...)
	}
	return out
}

// FindStep returns a copy of the named step.
func (p *BridgeProgress) FindStep(id StepID) (Step, bool) {
	for _, stage := range p.Stages {
		for _, s := range stage.Steps {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Step{}, false
}

// Completed reports whether every step is terminal-successful (completed or skipped).
func (p *BridgeProgress) Completed() bool {
	for _, stage := range p.Stages {
		for _, s := range stage.Steps {
			if s.Status != StepCompleted && s.Status != StepSkipped {
				return false
			}
		}
	}
	return true
}

// Failed reports whether any step is failed.
func (p *BridgeProgress) Failed() bool {
	for _, stage := range p.Stages {
		for _, s := range stage.Steps {
			if s.Status == StepFailed {
				return true
			}
		}
	}
	return false
}
