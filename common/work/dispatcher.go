package work

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunFunc executes one ingest run under runID
type RunFunc func(ctx context.Context, runID string) (models.RunReport, error)

// Dispatcher queues runs on a single worker and keeps RunManager in step
// with them: the lock is taken on Submit and released when the report comes
// back.
type Dispatcher struct {
	pool    *Pool[models.RunReport]
	manager *RunManager
	timeout time.Duration

	mu    sync.Mutex
	sites map[string]string
	done  chan struct{}
}

// NewDispatcher creates a dispatcher whose queue holds queueSize pending runs
func NewDispatcher(manager *RunManager, queueSize int, runTimeout time.Duration) (*Dispatcher, error) {
	pool, err := NewWorkerPoolWithConfig[models.RunReport](PoolConfig{
		NumWorkers:      1,
		TaskChannelSize: queueSize,
		ResultChanSize:  queueSize + 1,
		TaskTimeout:     runTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		pool:    pool,
		manager: manager,
		timeout: runTimeout,
		sites:   make(map[string]string),
		done:    make(chan struct{}),
	}, nil
}

// Manager exposes the run manager for status queries
func (d *Dispatcher) Manager() *RunManager {
	return d.manager
}

// Start runs the worker and the result collector until ctx ends or Stop
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx, "ingest-runs")
	go d.collect()
}

// Stop waits for the running run and drops queued ones, releasing their locks
func (d *Dispatcher) Stop() {
	d.pool.Stop()
	select {
	case <-d.done:
	case <-time.After(defaultShutdownTimeout):
		log.Warn().Msg("Run collector did not finish before shutdown")
		return
	}

	d.mu.Lock()
	dropped := d.sites
	d.sites = make(map[string]string)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for runID, site := range dropped {
		log.Warn().Str("site", site).Str("runID", runID).Msg("Dropping queued run on shutdown")
		if err := d.manager.Release(ctx, site, runID); err != nil {
			log.Warn().Err(err).Str("runID", runID).Msg("Failed to release run lock")
		}
	}
}

// Submit locks site and queues run. It returns the run id, or
// common.ErrRunInProgress when site is already locked.
func (d *Dispatcher) Submit(ctx context.Context, site string, trigger constants.ActionType, run RunFunc) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	runID := id.String()

	if err := d.manager.Start(ctx, site, runID, trigger); err != nil {
		return "", err
	}

	task, err := NewTask(
		func(ctx context.Context) (models.RunReport, error) {
			return run(ctx, runID)
		},
		WithID[models.RunReport](runID),
		WithTimeout[models.RunReport](d.timeout),
	)
	if err == nil {
		d.mu.Lock()
		d.sites[runID] = site
		d.mu.Unlock()
		err = d.pool.AddTaskNonBlocking(task)
	}
	if err != nil {
		d.forget(runID)
		if releaseErr := d.manager.Release(ctx, site, runID); releaseErr != nil {
			log.Warn().Err(releaseErr).Str("runID", runID).Msg("Failed to release run lock")
		}
		return "", fmt.Errorf("failed to queue run for %s: %w", site, err)
	}

	log.Info().Str("site", site).Str("runID", runID).Msg("Run queued")
	return runID, nil
}

func (d *Dispatcher) forget(runID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	site := d.sites[runID]
	delete(d.sites, runID)
	return site
}

func (d *Dispatcher) collect() {
	defer close(d.done)

	for result := range d.pool.Results() {
		site := d.forget(result.TaskID)
		report := result.Result
		if report.RunID == "" {
			report.RunID = result.TaskID
			report.Site = site
			report.StartedAt = result.StartTime.UTC()
			report.FinishedAt = result.EndTime.UTC()
			report.Duration = result.Duration
		}
		if result.Error != nil && !report.State.Terminal() {
			report.State = common.RunStateFailed
		}
		if result.Error != nil && report.Error == "" {
			report.Error = result.Error.Error()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.manager.Complete(ctx, site, report); err != nil {
			log.Error().Err(err).Str("runID", report.RunID).Msg("Failed to complete run")
		}
		cancel()
	}
}
