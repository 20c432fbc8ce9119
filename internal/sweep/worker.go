package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/crucible/internal/health"
	"github.com/wnt/crucible/internal/logger"
	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/positions"
	"github.com/wnt/crucible/internal/queue"
)

// Liquidator executes a liquidation against a position. Satisfied by
// *positions.Manager; an interface here keeps the worker testable without a
// database.
type Liquidator interface {
	Liquidate(ctx context.Context, positionID uint) (positions.LiquidationResult, error)
}

// Worker represents a single health-check worker
type Worker struct {
	id         string
	queue      *queue.Client
	checker    *Checker
	liquidator Liquidator
	logger     zerolog.Logger
	stopped    bool
}

// NewWorker creates a new worker instance
func NewWorker(id string, queueClient *queue.Client, checker *Checker, liquidator Liquidator, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:         id,
		queue:      queueClient,
		checker:    checker,
		liquidator: liquidator,
		logger:     logger.WithWorker(baseLogger, id),
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return ctx.Err()
		default:
			if w.stopped {
				w.logger.Info().Msg("Worker stopped")
				return nil
			}

			if err := w.processPosition(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to process position")

				// Brief pause to avoid tight error loops
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Stop signals the worker to stop gracefully
func (w *Worker) Stop() {
	w.stopped = true
	w.logger.Info().Msg("Worker stop signal received")
}

// processPosition handles one queued position: score its health, liquidate
// if it is under the threshold, requeue it otherwise.
func (w *Worker) processPosition(ctx context.Context) error {
	positionID, err := w.queue.PopPosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to pop position from queue: %w", err)
	}

	// Nothing queued
	if positionID == 0 {
		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if err := w.queue.SetInFlight(ctx, positionID, w.id); err != nil {
		w.logger.Error().Err(err).Uint("position_id", positionID).Msg("Failed to mark position as in-flight")
		// Re-queue the position since we couldn't track it
		if requeueErr := w.queue.PushPosition(ctx, positionID, 0); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Uint("position_id", positionID).Msg("Failed to requeue position after in-flight error")
		}
		return err
	}

	posLogger := logger.WithPosition(w.logger, positionID)
	startTime := time.Now()

	err = w.checkPosition(ctx, positionID, posLogger)
	duration := time.Since(startTime)

	metrics.SweepSeconds.Observe(duration.Seconds())

	if removeErr := w.queue.RemoveInFlight(ctx, positionID); removeErr != nil {
		posLogger.Error().Err(removeErr).Msg("Failed to remove position from in-flight tracking")
	}

	if err != nil {
		posLogger.Error().Err(err).Dur("duration", duration).Msg("Failed to check position")

		// Re-queue with low priority on failure so the rest of the queue
		// drains first
		if requeueErr := w.queue.PushPosition(ctx, positionID, int64(time.Now().Unix())); requeueErr != nil {
			posLogger.Error().Err(requeueErr).Msg("Failed to requeue failed position")
		}

		return fmt.Errorf("position check failed: %w", err)
	}

	return nil
}

// checkPosition scores and, when eligible, liquidates one position
func (w *Worker) checkPosition(ctx context.Context, positionID uint, posLogger zerolog.Logger) error {
	result, open, err := w.checker.Check(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to score position: %w", err)
	}

	// Closed since it was queued; drop it
	if !open {
		posLogger.Debug().Msg("Position no longer open, dropping from sweep")
		return nil
	}

	if !result.Liquidatable {
		posLogger.Debug().
			Int64("health_factor", result.HealthFactor).
			Str("band", string(result.Band)).
			Msg("Position healthy")
		return nil
	}

	posLogger.Warn().
		Int64("health_factor", result.HealthFactor).
		Msg("Position under liquidation threshold")

	res, err := w.liquidator.Liquidate(ctx, positionID)
	if err != nil {
		// The price can recover between the score and the locked
		// re-check inside Liquidate; that refusal is not a failure.
		if errors.Is(err, health.ErrNotLiquidatable) {
			posLogger.Info().Msg("Position recovered before liquidation")
			return nil
		}
		if errors.Is(err, positions.ErrPositionAlreadyClosed) {
			posLogger.Debug().Msg("Position closed by another actor")
			return nil
		}
		return fmt.Errorf("liquidation failed: %w", err)
	}

	posLogger.Info().
		Int64("repaid", res.Repaid).
		Int64("fee", res.Fee).
		Int64("owner_remainder", res.OwnerRemainder).
		Msg("Position liquidated")
	return nil
}
