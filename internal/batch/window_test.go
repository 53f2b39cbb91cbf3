package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logscope/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEntry(ip string) *models.AccessEntry {
	return &models.AccessEntry{
		IP:     ip,
		Time:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Method: "GET",
		Path:   "/",
		Status: 200,
	}
}

// TestNewCollector tests collector creation with various configurations.
func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	handler := WindowHandlerFunc(func(_ context.Context, _ []*models.AccessEntry) (int, error) {
		return 0, nil
	})

	tests := []struct {
		name    string
		config  *Config
		handler WindowHandler
		wantErr bool
	}{
		{
			name:    "default config",
			config:  nil,
			handler: handler,
			wantErr: false,
		},
		{
			name: "valid custom config",
			config: &Config{
				MaxWindowSize: 50,
				Interval:      1 * time.Second,
				BufferSize:    1000,
				FlushTimeout:  10 * time.Second,
				Logger:        logger,
			},
			handler: handler,
			wantErr: false,
		},
		{
			name: "invalid MaxWindowSize",
			config: &Config{
				MaxWindowSize: 0,
				Interval:      1 * time.Second,
				BufferSize:    1000,
				FlushTimeout:  10 * time.Second,
				Logger:        logger,
			},
			handler: handler,
			wantErr: true,
		},
		{
			name: "invalid Interval",
			config: &Config{
				MaxWindowSize: 10,
				Interval:      0,
				BufferSize:    1000,
				FlushTimeout:  10 * time.Second,
				Logger:        logger,
			},
			handler: handler,
			wantErr: true,
		},
		{
			name: "nil handler",
			config: &Config{
				MaxWindowSize: 10,
				Interval:      1 * time.Second,
				BufferSize:    1000,
				FlushTimeout:  10 * time.Second,
				Logger:        logger,
			},
			handler: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCollector(tt.config, tt.handler)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
			assert.NoError(t, c.Close())
		})
	}
}

// TestCollector_SizeFlush verifies the window flushes when the size cap is hit.
func TestCollector_SizeFlush(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]*models.AccessEntry

	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		mu.Lock()
		flushed = append(flushed, window)
		mu.Unlock()
		return len(window), nil
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 3,
		Interval:      time.Hour, // ticker must not fire in this test
		BufferSize:    100,
		FlushTimeout:  5 * time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Add(testEntry("10.0.0.1")))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1 && len(flushed[0]) == 3
	}, 3*time.Second, 10*time.Millisecond, "expected one window of 3 entries")

	require.NoError(t, c.Close())

	metrics := c.GetMetrics()
	assert.Equal(t, int64(3), metrics.TotalEntries)
	assert.Equal(t, int64(1), metrics.TotalWindows)
	assert.Equal(t, int64(3), metrics.TotalProcessed)
}

// TestCollector_IntervalFlush verifies the ticker flushes partial windows.
func TestCollector_IntervalFlush(t *testing.T) {
	var count atomic.Int64

	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		count.Add(int64(len(window)))
		return len(window), nil
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 1000,
		Interval:      50 * time.Millisecond,
		BufferSize:    100,
		FlushTimeout:  5 * time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(testEntry("10.0.0.1")))
	require.NoError(t, c.Add(testEntry("10.0.0.2")))

	assert.Eventually(t, func() bool {
		return count.Load() == 2
	}, 3*time.Second, 10*time.Millisecond, "interval flush did not deliver entries")
}

// TestCollector_CloseFlushesRemainder verifies Close delivers buffered entries.
func TestCollector_CloseFlushesRemainder(t *testing.T) {
	var count atomic.Int64

	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		count.Add(int64(len(window)))
		return len(window), nil
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 1000,
		Interval:      time.Hour,
		BufferSize:    100,
		FlushTimeout:  5 * time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)

	require.NoError(t, c.Add(testEntry("10.0.0.1")))
	require.NoError(t, c.Add(testEntry("10.0.0.2")))

	// Give the process loop a moment to move entries into the window.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(2), count.Load())
}

// TestCollector_AddAfterClose verifies Add fails after Close.
func TestCollector_AddAfterClose(t *testing.T) {
	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		return len(window), nil
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 10,
		Interval:      time.Hour,
		BufferSize:    10,
		FlushTimeout:  time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.Add(testEntry("10.0.0.1"))
	assert.ErrorIs(t, err, ErrCollectorClosed)
}

// TestCollector_HandlerError verifies failed windows count as dropped.
func TestCollector_HandlerError(t *testing.T) {
	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		return 0, errors.New("downstream unavailable")
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 2,
		Interval:      time.Hour,
		BufferSize:    10,
		FlushTimeout:  time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)

	require.NoError(t, c.Add(testEntry("10.0.0.1")))
	require.NoError(t, c.Add(testEntry("10.0.0.2")))

	assert.Eventually(t, func() bool {
		return c.GetMetrics().TotalDropped == 2
	}, 3*time.Second, 10*time.Millisecond, "failed window entries not counted as dropped")

	// Nothing left to flush, so Close itself succeeds.
	assert.NoError(t, c.Close())
}

// TestCollector_NilEntry verifies nil entries are ignored.
func TestCollector_NilEntry(t *testing.T) {
	handler := WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		return len(window), nil
	})

	c, err := NewCollector(&Config{
		MaxWindowSize: 10,
		Interval:      time.Hour,
		BufferSize:    10,
		FlushTimeout:  time.Second,
		Logger:        zap.NewNop(),
	}, handler)
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Add(nil))
	assert.Equal(t, int64(0), c.GetMetrics().TotalEntries)
}
