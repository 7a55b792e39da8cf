// Package store persists bridge run history in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var ErrRunNotFound = errors.New("run not found")

// Store provides run-history operations backed by bun.
type Store struct {
	db *bun.DB
}

// NewStore creates a store over an existing connection.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the history tables if missing. Used at daemon startup
// and by tests; production migrations would normally own this.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, model := range []any{(*BridgeRun)(nil), (*BridgeAsset)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a new run record in the running state.
func (s *Store) CreateRun(ctx context.Context, run *BridgeRun) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal with its final status.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*BridgeRun)(nil)).
		Set("status = ?", status).
		Set("finished_at = ?", now).
		Where("id = ?", runID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// RecordAsset upserts one asset outcome for a run. A retry re-records the
// same (run, position) with the newer outcome.
func (s *Store) RecordAsset(ctx context.Context, asset *BridgeAsset) error {
	_, err := s.db.NewInsert().
		Model(asset).
		On("CONFLICT (run_id, position) DO UPDATE").
		Set("outcome = EXCLUDED.outcome").
		Set("tx_ref = EXCLUDED.tx_ref").
		Set("error = EXCLUDED.error").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record asset: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*BridgeRun, error) {
	run := new(BridgeRun)
	err := s.db.NewSelect().Model(run).Where("id = ?", runID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*BridgeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []*BridgeRun
	err := s.db.NewSelect().
		Model(&runs).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListAssets returns a run's asset outcomes in queue order.
func (s *Store) ListAssets(ctx context.Context, runID string) ([]*BridgeAsset, error) {
	var assets []*BridgeAsset
	err := s.db.NewSelect().
		Model(&assets).
		Where("run_id = ?", runID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}
