package store

import (
	"time"

	"github.com/uptrace/bun"
)

// RunStatus is the terminal disposition of a recorded bridge run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// BridgeRun maps to the 'bridge_runs' table.
type BridgeRun struct {
	bun.BaseModel `bun:"table:bridge_runs,alias:br"`

	ID         string     `bun:"id,pk,type:varchar(36)" json:"id"`
	Direction  string     `bun:"direction,notnull,type:varchar(32)" json:"direction"`
	Wallet     string     `bun:"wallet,notnull,type:varchar(42)" json:"wallet"`
	AssetCount int        `bun:"asset_count,notnull" json:"asset_count"`
	Status     RunStatus  `bun:"status,notnull,type:varchar(16)" json:"status"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	FinishedAt *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
}

// BridgeAsset maps to the 'bridge_assets' table, one row per asset outcome.
type BridgeAsset struct {
	bun.BaseModel `bun:"table:bridge_assets,alias:ba"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	RunID    string `bun:"run_id,notnull,type:varchar(36),unique:run_pos" json:"run_id"`
	Position int    `bun:"position,notnull,unique:run_pos" json:"position"`
	Contract string `bun:"contract,notnull,type:varchar(64)" json:"contract"`
	TokenID  string `bun:"token_id,notnull,type:varchar(128)" json:"token_id"`
	Outcome  string `bun:"outcome,notnull,type:varchar(16)" json:"outcome"`
	TxRef    string `bun:"tx_ref,nullzero,type:varchar(128)" json:"tx_ref,omitempty"`
	Error    string `bun:"error,nullzero,type:text" json:"error,omitempty"`
}
