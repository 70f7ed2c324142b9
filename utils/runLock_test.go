package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subminder/config"
)

func TestLocalRunLock(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release, ok, _ = lock.TryAcquire(ctx)
	assert.True(t, ok)
	release()
}

func TestNewRunLock(t *testing.T) {
	lock, err := NewRunLock(&config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &LocalRunLock{}, lock)

	_, err = NewRunLock(&config.Config{RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestKeepAlive_ExtendsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, 10*time.Millisecond, func() (bool, error) {
			calls.Add(1)
			return true, nil
		})
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not return after stop")
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestKeepAlive_RetriesErrorsAndQuitsWhenLost(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(make(chan struct{}), 5*time.Millisecond, func() (bool, error) {
			switch calls.Add(1) {
			case 1:
				return false, errors.New("i/o timeout")
			case 2:
				return true, nil
			default:
				return false, nil
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept going after the lock was lost")
	}
	assert.Equal(t, int32(3), calls.Load())
}
