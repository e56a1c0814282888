package work

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
)

func reportTask(t *testing.T, runID string, run func(ctx context.Context) (models.RunReport, error), timeout time.Duration) Executor[models.RunReport] {
	t.Helper()
	task, err := NewTask(run, WithID[models.RunReport](runID), WithTimeout[models.RunReport](timeout))
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		taskChannelSize int
		expectError     error
	}{
		{"single run worker", 1, 4, nil},
		{"zero workers", 0, 4, ErrInvalidWorkerCount},
		{"negative workers", -1, 4, ErrInvalidWorkerCount},
		{"negative queue", 1, -1, ErrInvalidChannelSize},
		{"unbuffered queue", 1, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewWorkerPool[models.RunReport](tt.numWorkers, tt.taskChannelSize)
			if !errors.Is(err, tt.expectError) {
				t.Fatalf("Expected error %v, got %v", tt.expectError, err)
			}
			if tt.expectError == nil && pool == nil {
				t.Error("Expected pool but got nil")
			}
		})
	}
}

func TestWorkerPoolRunsTask(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[models.RunReport](1, 2)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "runs")
	defer pool.Stop()

	task := reportTask(t, "run-1", func(ctx context.Context) (models.RunReport, error) {
		return models.RunReport{RunID: "run-1", State: common.RunStateDone, Inserted: 3}, nil
	}, time.Second)

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if !result.IsSuccess() {
			t.Fatalf("Run failed: %v", result.Error)
		}
		if result.TaskID != "run-1" {
			t.Errorf("Expected task id run-1, got %s", result.TaskID)
		}
		if result.Result.Inserted != 3 {
			t.Errorf("Expected 3 inserted, got %d", result.Result.Inserted)
		}
		if result.Duration < 0 || result.EndTime.Before(result.StartTime) {
			t.Error("Invalid timing in result")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for result")
	}
}

func TestWorkerPoolSerializesOnOneWorker(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[models.RunReport](1, 5)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "serial")
	defer pool.Stop()

	var inFlight, maxInFlight int64
	const numRuns = 4
	for i := 0; i < numRuns; i++ {
		runID := fmt.Sprintf("run-%d", i)
		task := reportTask(t, runID, func(ctx context.Context) (models.RunReport, error) {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&maxInFlight)
				if n <= old || atomic.CompareAndSwapInt64(&maxInFlight, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return models.RunReport{RunID: runID, State: common.RunStateDone}, nil
		}, time.Second)

		if err := pool.AddTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < numRuns; i++ {
		select {
		case <-pool.Results():
		case <-time.After(3 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}

	if got := atomic.LoadInt64(&maxInFlight); got != 1 {
		t.Errorf("Expected runs to never overlap, saw %d at once", got)
	}
}

func TestWorkerPoolTimeout(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[models.RunReport](1, 1)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "timeout")
	defer pool.Stop()

	var handled atomic.Bool
	task, err := NewTask(
		func(ctx context.Context) (models.RunReport, error) {
			select {
			case <-time.After(2 * time.Second):
				return models.RunReport{State: common.RunStateDone}, nil
			case <-ctx.Done():
				return models.RunReport{State: common.RunStateFailed}, ctx.Err()
			}
		},
		WithErrorHandler[models.RunReport](func(err error) { handled.Store(true) }),
		WithTimeout[models.RunReport](100*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if !errors.Is(result.Error, ErrTaskTimeout) {
			t.Errorf("Expected timeout error, got: %v", result.Error)
		}
		if result.Result.State != common.RunStateFailed {
			t.Errorf("Expected partial report to be kept, got state %s", result.Result.State)
		}
		if !handled.Load() {
			t.Error("Expected error handler to be called")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for result")
	}
}

func TestWorkerPoolStopRejectsTasks(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[models.RunReport](1, 2)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "shutdown")
	pool.Stop()
	pool.Stop()

	task := reportTask(t, "late", func(ctx context.Context) (models.RunReport, error) {
		return models.RunReport{}, nil
	}, time.Second)

	if err := pool.AddTask(ctx, task); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got: %v", err)
	}
	if err := pool.AddTaskNonBlocking(task); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got: %v", err)
	}

	if _, ok := <-pool.Results(); ok {
		t.Error("Expected results channel to be closed")
	}
}

func TestAddTaskNonBlockingQueueFull(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[models.RunReport](1, 1)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "queue")
	defer pool.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := reportTask(t, "blocking", func(ctx context.Context) (models.RunReport, error) {
		close(started)
		<-release
		return models.RunReport{}, nil
	}, 5*time.Second)

	if err := pool.AddTaskNonBlocking(blocking); err != nil {
		t.Fatal(err)
	}
	<-started

	queued := reportTask(t, "queued", func(ctx context.Context) (models.RunReport, error) {
		return models.RunReport{}, nil
	}, time.Second)
	if err := pool.AddTaskNonBlocking(queued); err != nil {
		t.Fatal(err)
	}

	rejected := reportTask(t, "rejected", func(ctx context.Context) (models.RunReport, error) {
		return models.RunReport{}, nil
	}, time.Second)
	if err := pool.AddTaskNonBlocking(rejected); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got: %v", err)
	}

	stats := pool.Stats()
	if stats.TasksQueued != 2 {
		t.Errorf("Expected 2 queued tasks, got %d", stats.TasksQueued)
	}
	if stats.ActiveWorkers != 1 {
		t.Errorf("Expected 1 active worker, got %d", stats.ActiveWorkers)
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-pool.Results():
		case <-time.After(3 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}
}
