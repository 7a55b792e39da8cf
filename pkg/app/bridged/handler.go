package bridged

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/cknft-bridge/pkg/app/errors"
	apphttp "github.com/chainsafe/cknft-bridge/pkg/app/http"
	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/orchestrator"
	"github.com/chainsafe/cknft-bridge/pkg/progress"
	"github.com/chainsafe/cknft-bridge/pkg/store"
)

// BridgeRunner is the orchestrator surface the HTTP handlers drive.
type BridgeRunner interface {
	StartRun(ctx context.Context, direction progress.Direction, assets []orchestrator.Asset, recipient string, defaults icledger.CanisterDefaults) (*orchestrator.RunResult, error)
	RetryStep(ctx context.Context, id progress.StepID) (*orchestrator.RunResult, error)
	Progress() *progress.BridgeProgress
	ToggleStage(id progress.StageID)
}

// RunHistory is the persisted-run surface the HTTP handlers read.
type RunHistory interface {
	GetRun(ctx context.Context, runID string) (*store.BridgeRun, error)
	ListRuns(ctx context.Context, limit int) ([]*store.BridgeRun, error)
	ListAssets(ctx context.Context, runID string) ([]*store.BridgeAsset, error)
}

// Handler wraps the orchestrator and run history behind the REST surface.
type Handler struct {
	orch    BridgeRunner
	history RunHistory
	logger  *zap.Logger

	// One bridge run at a time; runs execute on a background goroutine and
	// progress is observed via GET /progress.
	mu   sync.Mutex
	busy bool
}

// RegisterRoutes registers the bridge endpoints on the given chi router.
func RegisterRoutes(r chi.Router, orch BridgeRunner, history RunHistory, logger *zap.Logger) {
	h := &Handler{orch: orch, history: history, logger: logger}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", apphttp.HandleError(h.startRun))
		r.Get("/runs", apphttp.HandleError(h.listRuns))
		r.Get("/runs/{runID}", apphttp.HandleError(h.getRun))
		r.Get("/progress", apphttp.HandleError(h.getProgress))
		r.Post("/steps/{stepID}/retry", apphttp.HandleError(h.retryStep))
		r.Post("/stages/{stageID}/toggle", apphttp.HandleError(h.toggleStage))
	})
}

type startRunRequest struct {
	Direction string                    `json:"direction"`
	Recipient string                    `json:"recipient,omitempty"`
	Defaults  icledger.CanisterDefaults `json:"defaults"`
	Assets    []assetRequest            `json:"assets"`
}

type assetRequest struct {
	Contract   string `json:"contract"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner,omitempty"`
	CkCanister string `json:"ck_canister,omitempty"`
}

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req startRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	direction := progress.Direction(req.Direction)
	if direction != progress.DirectionSourceToLedger && direction != progress.DirectionLedgerToSource {
		return apperrors.BadRequestError(nil, fmt.Sprintf("unknown direction %q", req.Direction))
	}
	if len(req.Assets) == 0 {
		return apperrors.BadRequestError(nil, "at least one asset is required")
	}

	assets := make([]orchestrator.Asset, len(req.Assets))
	for i, a := range req.Assets {
		if !common.IsHexAddress(a.Contract) {
			return apperrors.BadRequestError(nil, fmt.Sprintf("asset %d: invalid contract address", i))
		}
		tokenID, ok := new(big.Int).SetString(a.TokenID, 10)
		if !ok {
			return apperrors.BadRequestError(nil, fmt.Sprintf("asset %d: invalid token id", i))
		}
		assets[i] = orchestrator.Asset{
			Contract:   common.HexToAddress(a.Contract),
			TokenID:    tokenID,
			Owner:      common.HexToAddress(a.Owner),
			CkCanister: a.CkCanister,
		}
	}

	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return apperrors.ConflictError(nil, "a bridge run is already in progress")
	}
	h.busy = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.busy = false
			h.mu.Unlock()
		}()
		// Detached from the request context; the run outlives the response.
		if _, err := h.orch.StartRun(context.Background(), direction, assets, req.Recipient, req.Defaults); err != nil {
			h.logger.Error("bridge run rejected", zap.Error(err))
		}
	}()

	return apphttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) error {
	runs, err := h.history.ListRuns(r.Context(), 50)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) error {
	runID := chi.URLParam(r, "runID")

	run, err := h.history.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return apperrors.ResourceNotFoundError(err, "run not found")
		}
		return apperrors.GeneralError(err)
	}

	assets, err := h.history.ListAssets(r.Context(), runID)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"run":    run,
		"assets": assets,
	})
}

func (h *Handler) getProgress(w http.ResponseWriter, _ *http.Request) error {
	p := h.orch.Progress()
	if p == nil {
		return apperrors.ResourceNotFoundError(nil, "no active run")
	}
	return apphttp.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) retryStep(w http.ResponseWriter, r *http.Request) error {
	stepID := progress.StepID(chi.URLParam(r, "stepID"))

	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return apperrors.ConflictError(nil, "a bridge run is already in progress")
	}
	h.busy = true
	h.mu.Unlock()

	// Validate the retry synchronously so the caller gets the rejection, then
	// let the re-entered run proceed in the background.
	p := h.orch.Progress()
	if p == nil {
		h.clearBusy()
		return apperrors.ResourceNotFoundError(nil, "no active run")
	}
	step, ok := p.FindStep(stepID)
	if !ok {
		h.clearBusy()
		return apperrors.ResourceNotFoundError(nil, fmt.Sprintf("unknown step %q", stepID))
	}
	if step.Status != progress.StepFailed || !step.Retryable {
		h.clearBusy()
		return apperrors.ConflictError(nil, fmt.Sprintf("step %q is not retryable in its current state", stepID))
	}

	go func() {
		defer h.clearBusy()
		if _, err := h.orch.RetryStep(context.Background(), stepID); err != nil {
			h.logger.Error("step retry rejected", zap.String("step", string(stepID)), zap.Error(err))
		}
	}()

	return apphttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

func (h *Handler) toggleStage(w http.ResponseWriter, r *http.Request) error {
	stageID := progress.StageID(chi.URLParam(r, "stageID"))

	p := h.orch.Progress()
	if p == nil {
		return apperrors.ResourceNotFoundError(nil, "no active run")
	}

	h.orch.ToggleStage(stageID)
	return apphttp.WriteJSON(w, http.StatusOK, h.orch.Progress())
}

func (h *Handler) clearBusy() {
	h.mu.Lock()
	h.busy = false
	h.mu.Unlock()
}
