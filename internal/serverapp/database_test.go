package serverapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCounter struct {
	calls    int
	failures int
}

func (p *pingCounter) ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitForDatabase_ZeroTimeoutPingsOnce(t *testing.T) {
	p := &pingCounter{failures: 1}
	err := waitForDatabase(context.Background(), 0, time.Millisecond, testLogger(), p.ping)
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 1, p.calls)
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	p := &pingCounter{failures: 2}
	err := waitForDatabase(context.Background(), time.Second, time.Millisecond, testLogger(), p.ping)
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls)
}

func TestWaitForDatabase_GivesUpAfterTimeout(t *testing.T) {
	p := &pingCounter{failures: 1000}
	err := waitForDatabase(context.Background(), 20*time.Millisecond, 5*time.Millisecond, testLogger(), p.ping)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not available after 20ms")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWaitForDatabase_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &pingCounter{failures: 1000}
	err := waitForDatabase(ctx, time.Minute, time.Second, testLogger(), p.ping)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
}
