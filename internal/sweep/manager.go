package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wnt/crucible/internal/config"
	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/queue"
	"github.com/wnt/crucible/internal/store"
)

const scanPageSize = 200

// Manager manages a dynamic pool of sweep workers plus the enqueue loop
// that feeds them every open leveraged position on an interval.
type Manager struct {
	config     config.Config
	queue      *queue.Client
	store      *store.Store
	checker    *Checker
	liquidator Liquidator
	workers    []*Worker
	logger     zerolog.Logger
	mutex      sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	eg         *errgroup.Group
	stopped    bool
}

// NewManager creates a new sweep manager
func NewManager(cfg config.Config, queueClient *queue.Client, s *store.Store, checker *Checker, liquidator Liquidator, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		config:     cfg,
		queue:      queueClient,
		store:      s,
		checker:    checker,
		liquidator: liquidator,
		workers:    make([]*Worker, 0),
		logger:     logger.With().Str("component", "sweep_manager").Logger(),
		ctx:        egCtx,
		cancel:     cancel,
		eg:         eg,
	}
}

// Start begins the sweep manager lifecycle
func (m *Manager) Start() error {
	m.logger.Info().
		Int("min_workers", m.config.MinWorkers).
		Int("max_workers", m.config.MaxWorkers).
		Int("sweep_interval_secs", m.config.SweepIntervalSecs).
		Msg("Starting sweep manager")

	// Start initial workers
	if err := m.adjustWorkerCount(); err != nil {
		return fmt.Errorf("failed to start initial workers: %w", err)
	}

	// Enqueue loop feeding the workers
	m.eg.Go(func() error {
		return m.runEnqueueLoop()
	})

	// Start the scaling ticker
	m.eg.Go(func() error {
		return m.runScalingLoop()
	})

	// Start stuck position recovery
	m.eg.Go(func() error {
		return m.runStuckPositionRecovery()
	})

	// Start queue monitoring
	m.eg.Go(func() error {
		return m.runQueueMonitoring()
	})

	m.logger.Info().Msg("Sweep manager started successfully")
	return nil
}

// Stop gracefully shuts down the sweep manager
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return nil
	}
	m.stopped = true
	m.mutex.Unlock()

	m.logger.Info().Msg("Stopping sweep manager...")

	// Cancel context to signal all workers to stop
	m.cancel()

	// Wait for all workers to finish with timeout
	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			m.logger.Error().Err(err).Msg("Error during worker shutdown")
		}
	case <-time.After(30 * time.Second):
		m.logger.Warn().Msg("Worker shutdown timed out")
	}

	m.mutex.Lock()
	m.workers = nil
	m.mutex.Unlock()

	metrics.WorkersActive.Set(0)
	m.logger.Info().Msg("Sweep manager stopped")
	return nil
}

// runEnqueueLoop periodically walks every open leveraged position and
// queues it scored by its current health factor, worst first. The walk is
// paged and resumes from a Redis cursor across restarts.
func (m *Manager) runEnqueueLoop() error {
	interval := time.Duration(m.config.SweepIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sweep right away
	if err := m.enqueueSweep(); err != nil {
		m.logger.Error().Err(err).Msg("Initial sweep enqueue failed")
	}

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			if err := m.enqueueSweep(); err != nil {
				m.logger.Error().Err(err).Msg("Sweep enqueue failed")
			}
		}
	}
}

// enqueueSweep pages through open leveraged positions and pushes each one
func (m *Manager) enqueueSweep() error {
	cursor, err := m.queue.GetCursor(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to read sweep cursor: %w", err)
	}

	enqueued := 0
	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		default:
		}

		page, err := m.store.OpenLeveragedPositions(m.ctx, cursor, scanPageSize)
		if err != nil {
			return fmt.Errorf("failed to page leveraged positions: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			pos := &page[i]
			result, open, err := m.checker.Check(m.ctx, pos.ID)
			if err != nil {
				m.logger.Warn().Err(err).Uint("position_id", pos.ID).Msg("Failed to score position, queueing at top priority")
				if err := m.queue.PushPosition(m.ctx, pos.ID, 0); err != nil {
					m.logger.Error().Err(err).Uint("position_id", pos.ID).Msg("Failed to enqueue position")
				}
				continue
			}
			if !open {
				continue
			}
			if err := m.queue.PushPosition(m.ctx, pos.ID, result.HealthFactor); err != nil {
				m.logger.Error().Err(err).Uint("position_id", pos.ID).Msg("Failed to enqueue position")
				continue
			}
			enqueued++
		}

		cursor = page[len(page)-1].ID
		if err := m.queue.SetCursor(m.ctx, cursor); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to advance sweep cursor")
		}

		if len(page) < scanPageSize {
			break
		}
	}

	// Full pass done, next sweep starts from the beginning
	if err := m.queue.SetCursor(m.ctx, 0); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to reset sweep cursor")
	}

	m.logger.Info().Int("enqueued", enqueued).Msg("Sweep pass enqueued")
	return nil
}

// runScalingLoop handles automatic worker scaling every 30 seconds
func (m *Manager) runScalingLoop() error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			if err := m.adjustWorkerCount(); err != nil {
				m.logger.Error().Err(err).Msg("Failed to adjust worker count")
			}
		}
	}
}

// adjustWorkerCount scales workers based on queue length
func (m *Manager) adjustWorkerCount() error {
	queueLength, err := m.queue.GetQueueLength(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue length: %w", err)
	}

	metrics.SweepQueueLength.Set(float64(queueLength))

	desiredWorkers := m.calculateDesiredWorkers(int(queueLength))

	m.mutex.Lock()
	currentWorkers := len(m.workers)
	m.mutex.Unlock()

	if desiredWorkers == currentWorkers {
		return nil
	}

	m.logger.Info().
		Int("current_workers", currentWorkers).
		Int("desired_workers", desiredWorkers).
		Int64("queue_length", queueLength).
		Msg("Adjusting worker count")

	if desiredWorkers > currentWorkers {
		return m.addWorkers(desiredWorkers - currentWorkers)
	}
	return m.removeWorkers(currentWorkers - desiredWorkers)
}

// calculateDesiredWorkers determines optimal worker count based on queue length
func (m *Manager) calculateDesiredWorkers(queueLength int) int {
	// One worker per 25 queued positions
	desired := queueLength / 25
	if desired < m.config.MinWorkers {
		desired = m.config.MinWorkers
	}
	if desired > m.config.MaxWorkers {
		desired = m.config.MaxWorkers
	}
	return desired
}

// addWorkers creates and starts new workers
func (m *Manager) addWorkers(count int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := 0; i < count; i++ {
		workerID := fmt.Sprintf("worker-%d", len(m.workers)+1)
		worker := NewWorker(workerID, m.queue, m.checker, m.liquidator, m.logger)

		m.eg.Go(func() error {
			return worker.Start(m.ctx)
		})

		m.workers = append(m.workers, worker)

		m.logger.Debug().
			Str("worker_id", workerID).
			Int("total_workers", len(m.workers)).
			Msg("Added worker")
	}

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("added", count).
		Int("total_workers", len(m.workers)).
		Msg("Workers added")

	return nil
}

// removeWorkers gracefully stops and removes workers
func (m *Manager) removeWorkers(count int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if count > len(m.workers) {
		count = len(m.workers)
	}

	// Signal workers to stop (they will finish current work)
	workersToRemove := m.workers[len(m.workers)-count:]
	for _, worker := range workersToRemove {
		worker.Stop()
	}

	m.workers = m.workers[:len(m.workers)-count]

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("removed", count).
		Int("remaining_workers", len(m.workers)).
		Msg("Workers removed")

	return nil
}

// runStuckPositionRecovery periodically requeues positions whose worker
// died mid-check
func (m *Manager) runStuckPositionRecovery() error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			if err := m.queue.RequeueStuckPositions(m.ctx, 15); err != nil {
				m.logger.Error().Err(err).Msg("Failed to requeue stuck positions")
			}
		}
	}
}

// runQueueMonitoring periodically logs queue statistics
func (m *Manager) runQueueMonitoring() error {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			queueLength, err := m.queue.GetQueueLength(m.ctx)
			if err != nil {
				m.logger.Error().Err(err).Msg("Failed to get queue length for monitoring")
				continue
			}

			inFlight, err := m.queue.GetInFlightPositions(m.ctx)
			if err != nil {
				m.logger.Error().Err(err).Msg("Failed to get in-flight positions for monitoring")
				continue
			}

			m.mutex.RLock()
			activeWorkers := len(m.workers)
			m.mutex.RUnlock()

			m.logger.Info().
				Int64("queue_length", queueLength).
				Int("in_flight_positions", len(inFlight)).
				Int("active_workers", activeWorkers).
				Msg("Queue monitoring stats")
		}
	}
}

// GetStats returns current manager statistics
func (m *Manager) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	queueLength, _ := m.queue.GetQueueLength(context.Background())
	inFlight, _ := m.queue.GetInFlightPositions(context.Background())

	return map[string]interface{}{
		"active_workers":      len(m.workers),
		"queue_length":        queueLength,
		"in_flight_positions": len(inFlight),
		"min_workers":         m.config.MinWorkers,
		"max_workers":         m.config.MaxWorkers,
	}
}
