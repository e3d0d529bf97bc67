package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockJob implements the Job interface for testing
type MockJob struct {
	id       string
	jobType  string
	duration time.Duration
	err      error
	executed int32
}

func NewMockJob(id, jobType string, duration time.Duration, err error) *MockJob {
	return &MockJob{
		id:       id,
		jobType:  jobType,
		duration: duration,
		err:      err,
	}
}

func (m *MockJob) Execute(ctx context.Context) error {
	atomic.AddInt32(&m.executed, 1)
	if m.duration > 0 {
		select {
		case <-time.After(m.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *MockJob) ID() string {
	return m.id
}

func (m *MockJob) Type() string {
	return m.jobType
}

func (m *MockJob) ExecutedCount() int32 {
	return atomic.LoadInt32(&m.executed)
}

func TestNewPool(t *testing.T) {
	config := Config{
		Size:            5,
		QueueSize:       100,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	pool := New(config)

	assert.NotNil(t, pool)
	assert.Equal(t, config.Size, cap(pool.workers))
	assert.Equal(t, config.QueueSize, cap(pool.jobs))
	assert.Equal(t, config.QueueSize, cap(pool.results))
}

func TestPoolLifecycle(t *testing.T) {
	t.Run("start and shutdown pool successfully", func(t *testing.T) {
		config := Config{
			Size:            2,
			QueueSize:       10,
			MaxRetries:      1,
			RetryDelay:      100 * time.Millisecond,
			ShutdownTimeout: 2 * time.Second,
		}

		pool := New(config)
		pool.Start()

		job := NewMockJob("test-1", "test", 10*time.Millisecond, nil)
		err := pool.Submit(job)
		assert.NoError(t, err)

		time.Sleep(50 * time.Millisecond)

		err = pool.Shutdown()
		assert.NoError(t, err)

		assert.Equal(t, int32(1), job.ExecutedCount())
	})

	t.Run("handles multiple shutdown calls gracefully", func(t *testing.T) {
		pool := New(Config{Size: 1, QueueSize: 1, ShutdownTimeout: time.Second})
		pool.Start()

		assert.NoError(t, pool.Shutdown())
		assert.NoError(t, pool.Shutdown())
	})

	t.Run("rejects submission after shutdown", func(t *testing.T) {
		pool := New(Config{Size: 1, QueueSize: 1, ShutdownTimeout: time.Second})
		pool.Start()
		require.NoError(t, pool.Shutdown())

		err := pool.Submit(NewMockJob("late", "test", 0, nil))
		assert.Error(t, err)
	})
}

func TestJobRetries(t *testing.T) {
	config := Config{
		Size:            1,
		QueueSize:       5,
		MaxRetries:      2,
		RetryDelay:      5 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	}

	pool := New(config)
	pool.Start()
	defer func() { _ = pool.Shutdown() }()

	job := NewMockJob("flaky", "test", 0, errors.New("always fails"))
	require.NoError(t, pool.Submit(job))

	var result Result
	select {
	case result = <-pool.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job result")
	}

	assert.Error(t, result.Error)
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, int32(3), job.ExecutedCount())
}

func TestResultDelivery(t *testing.T) {
	pool := New(Config{Size: 1, QueueSize: 5, ShutdownTimeout: time.Second})
	pool.Start()
	defer func() { _ = pool.Shutdown() }()

	require.NoError(t, pool.Submit(NewMockJob("ok", "test", 0, nil)))

	select {
	case result := <-pool.Results():
		assert.Equal(t, "ok", result.JobID)
		assert.Equal(t, "test", result.JobType)
		assert.NoError(t, result.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job result")
	}
}

func TestEnrichJob(t *testing.T) {
	var gotIP string
	job := NewEnrichJob("enrich-1", "192.168.1.10", func(_ context.Context, ip string) error {
		gotIP = ip
		return nil
	})

	assert.Equal(t, "enrich-1", job.ID())
	assert.Equal(t, "enrich", job.Type())
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, "192.168.1.10", gotIP)
}

func TestLivenessJob(t *testing.T) {
	job := NewLivenessJob("live-1", "192.168.1.10", func(context.Context, string) error {
		return errors.New("unreachable")
	})

	assert.Equal(t, "live-1", job.ID())
	assert.Equal(t, "liveness", job.Type())
	assert.Error(t, job.Execute(context.Background()))
}
