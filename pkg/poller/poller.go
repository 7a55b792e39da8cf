// Package poller converts a fire-and-forget mint/cast submission into a
// terminal result by polling the ledger service with a bounded budget.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/creasty/defaults"
	"go.uber.org/zap"
)

// The default envelope is 30 attempts x 2s, a one-minute budget matched to
// expected ledger-side finality latency. Both are configurable but the
// defaults are part of the client contract.
const (
	DefaultMaxAttempts = 30
	DefaultInterval    = 2 * time.Second
)

// StatusSource reads the current status of an outstanding request.
type StatusSource func(ctx context.Context) (icledger.Status, error)

// Outcome is the terminal disposition of a poll loop.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeFailed   Outcome = "failed"
	// OutcomeStillPending means the attempt budget ran out without a terminal
	// status. Not a failure: the operation may still complete server-side,
	// and the UI must present it as distinct from both success and failure.
	OutcomeStillPending Outcome = "still_pending"
)

// Result is what a poll loop resolves to.
type Result struct {
	Outcome  Outcome
	TxRef    string                 // set for OutcomeComplete
	Err      *icledger.ServiceError // set for OutcomeFailed
	Attempts int
}

// Options configure one poller.
type Options struct {
	MaxAttempts int           `default:"30"`
	Interval    time.Duration `default:"2s"`
	// OnProgress receives the user-facing message for each observed
	// intermediate phase. Optional.
	OnProgress func(message string)
}

// Poller runs bounded status polls.
type Poller struct {
	opts   Options
	logger *zap.Logger
}

// New creates a poller, filling unset options with the default envelope.
func New(logger *zap.Logger, opts Options) (*Poller, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	return &Poller{opts: opts, logger: logger}, nil
}

// Await polls the source until a terminal status, the attempt budget, or
// context cancellation. Intermediate phases are reported through OnProgress
// and may repeat across polls.
//
// Transient transport failures consume an attempt and the loop continues;
// any other typed service error is terminal, mirroring how the ledger
// reports mint failures.
func (p *Poller) Await(ctx context.Context, poll StatusSource) (Result, error) {
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		status, err := poll(ctx)
		if err != nil {
			var svcErr *icledger.ServiceError
			if errors.As(err, &svcErr) && svcErr.Kind == icledger.KindNetworkError {
				p.logger.Warn("status poll failed, will retry",
					zap.Int("attempt", attempt),
					zap.Error(err))
				if err := p.wait(ctx); err != nil {
					return Result{Attempts: attempt}, err
				}
				continue
			}
			if errors.As(err, &svcErr) {
				return Result{Outcome: OutcomeFailed, Err: svcErr, Attempts: attempt}, nil
			}
			return Result{Attempts: attempt}, err
		}

		switch status.Phase {
		case icledger.PhaseComplete:
			p.logger.Info("poll completed",
				zap.Int("attempts", attempt),
				zap.String("tx_ref", status.TxRef))
			return Result{Outcome: OutcomeComplete, TxRef: status.TxRef, Attempts: attempt}, nil
		case icledger.PhaseFailed:
			svcErr := status.Err
			if svcErr == nil {
				svcErr = &icledger.ServiceError{Kind: icledger.KindGeneric, Message: "mint failed without detail"}
			}
			return Result{Outcome: OutcomeFailed, Err: svcErr, Attempts: attempt}, nil
		}

		if p.opts.OnProgress != nil {
			p.opts.OnProgress(status.Message())
		}

		if err := p.wait(ctx); err != nil {
			return Result{Attempts: attempt}, err
		}
	}

	p.logger.Warn("poll budget exhausted without terminal status",
		zap.Int("attempts", p.opts.MaxAttempts))
	return Result{Outcome: OutcomeStillPending, Attempts: p.opts.MaxAttempts}, nil
}

func (p *Poller) wait(ctx context.Context) error {
	timer := time.NewTimer(p.opts.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
