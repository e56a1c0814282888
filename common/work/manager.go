package work

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/rs/zerolog/log"
)

const (
	lockKeyPrefix   = "run:lock:"
	statusKeyPrefix = "run:status:"
	// statusTTL is how long a finished run stays queryable
	statusTTL = 24 * time.Hour
	// defaultLockTTL releases the lock of a process that died mid run
	defaultLockTTL = 30 * time.Minute
)

// ErrRunNotFound is returned for unknown or expired run ids
var ErrRunNotFound = errors.New("run not found")

// RunningRun pairs a locked site with the run holding the lock
type RunningRun struct {
	Site  string `json:"site"`
	RunID string `json:"run_id"`
}

// RunManager keeps at most one run per site in flight and records the
// status of queued, running and finished runs.
type RunManager struct {
	store   StateStore
	lockTTL time.Duration
	now     func() time.Time
}

// NewRunManager creates a manager. lockTTL should exceed the run timeout;
// zero uses a default.
func NewRunManager(store StateStore, lockTTL time.Duration) *RunManager {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RunManager{
		store:   store,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

func lockKey(site string) string {
	return lockKeyPrefix + site
}

func statusKey(runID string) string {
	return statusKeyPrefix + runID
}

// Start takes the lock of site for runID. It returns common.ErrRunInProgress
// when another run holds it.
func (m *RunManager) Start(ctx context.Context, site, runID string, trigger constants.ActionType) error {
	ok, err := m.store.SetNX(ctx, lockKey(site), runID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock site %s: %w", site, err)
	}
	if !ok {
		holder, _ := m.store.Get(ctx, lockKey(site))
		return fmt.Errorf("%w: site %s held by run %s", common.ErrRunInProgress, site, holder)
	}

	status := models.RunStatusResponse{
		RunID:    runID,
		Site:     site,
		Trigger:  string(trigger),
		State:    common.RunStateInit,
		Running:  true,
		QueuedAt: m.now().UTC(),
	}
	if err := m.saveStatus(ctx, status); err != nil {
		log.Warn().Err(err).Str("runID", runID).Msg("Failed to store run status")
	}

	log.Info().Str("site", site).Str("runID", runID).Str("trigger", string(trigger)).Msg("Run lock acquired")
	return nil
}

// Complete releases the site lock and stores the final report
func (m *RunManager) Complete(ctx context.Context, site string, report models.RunReport) error {
	releaseErr := m.Release(ctx, site, report.RunID)

	status, err := m.Status(ctx, report.RunID)
	if err != nil {
		status = models.RunStatusResponse{RunID: report.RunID, Site: site}
	}
	status.State = report.State
	status.Running = false
	status.Report = &report

	saveErr := m.saveStatus(ctx, status)
	if saveErr != nil {
		log.Warn().Err(saveErr).Str("runID", report.RunID).Msg("Failed to store run report")
	}

	return errors.Join(releaseErr, saveErr)
}

// Release drops the site lock if runID still holds it
func (m *RunManager) Release(ctx context.Context, site, runID string) error {
	holder, err := m.store.Get(ctx, lockKey(site))
	if errors.Is(err, ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read lock of site %s: %w", site, err)
	}
	if holder != runID {
		log.Warn().Str("site", site).Str("runID", runID).Str("holder", holder).Msg("Lock taken over by another run, not releasing")
		return nil
	}

	if err := m.store.Delete(ctx, lockKey(site)); err != nil {
		return fmt.Errorf("failed to release lock of site %s: %w", site, err)
	}
	return nil
}

// IsRunning reports whether site is locked
func (m *RunManager) IsRunning(ctx context.Context, site string) (bool, error) {
	_, err := m.store.Get(ctx, lockKey(site))
	if errors.Is(err, ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get lock of site %s: %w", site, err)
	}
	return true, nil
}

// Status returns the last stored status of runID
func (m *RunManager) Status(ctx context.Context, runID string) (models.RunStatusResponse, error) {
	raw, err := m.store.Get(ctx, statusKey(runID))
	if errors.Is(err, ErrStateNotFound) {
		return models.RunStatusResponse{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return models.RunStatusResponse{}, fmt.Errorf("failed to get status of run %s: %w", runID, err)
	}

	var status models.RunStatusResponse
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return models.RunStatusResponse{}, fmt.Errorf("failed to decode status of run %s: %w", runID, err)
	}
	return status, nil
}

// ListRunning returns the sites currently locked
func (m *RunManager) ListRunning(ctx context.Context) ([]RunningRun, error) {
	keys, err := m.store.Keys(ctx, lockKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list run locks: %w", err)
	}

	runs := make([]RunningRun, 0, len(keys))
	for _, key := range keys {
		runID, err := m.store.Get(ctx, key)
		if errors.Is(err, ErrStateNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read lock %s: %w", key, err)
		}
		runs = append(runs, RunningRun{Site: strings.TrimPrefix(key, lockKeyPrefix), RunID: runID})
	}
	return runs, nil
}

func (m *RunManager) saveStatus(ctx context.Context, status models.RunStatusResponse) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status of run %s: %w", status.RunID, err)
	}
	return m.store.Set(ctx, statusKey(status.RunID), string(data), statusTTL)
}
