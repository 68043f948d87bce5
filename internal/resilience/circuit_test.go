package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = eris.New("boom")

func failing(ctx context.Context) (string, error) { return "", errBoom }

func succeeding(ctx context.Context) (string, error) { return "ok", nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Do(ctx, b, failing)
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 3, b.Failures())

	// Calls are rejected without reaching fn while open.
	_, err := Do(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute, nil)
	ctx := context.Background()

	_, _ = Do(ctx, b, failing)
	_, _ = Do(ctx, b, failing)
	_, err := Do(ctx, b, succeeding)
	require.NoError(t, err)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute, nil)
	b.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Do(ctx, b, failing)
	require.Equal(t, StateOpen, b.State())

	// Cooldown has not elapsed yet.
	_, err := Do(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrOpen)

	now = now.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	// The probe succeeds and closes the circuit.
	val, err := Do(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute, nil)
	b.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Do(ctx, b, failing)
	now = now.Add(time.Minute)

	_, err := Do(ctx, b, failing)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, b.State())

	// Still rejecting until another cooldown passes.
	_, err = Do(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_TransitionsReported(t *testing.T) {
	var changes []string
	onChange := func(from, to State) {
		changes = append(changes, from.String()+">"+to.String())
	}

	now := time.Now()
	b := NewBreaker(1, time.Minute, onChange)
	b.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Do(ctx, b, failing)
	now = now.Add(time.Minute)
	_, _ = Do(ctx, b, succeeding)

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, changes)
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(1, time.Minute, nil)
	_, _ = Do(context.Background(), b, failing)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_DefaultsApplied(t *testing.T) {
	b := NewBreaker(0, 0, nil)
	assert.Equal(t, 3, b.threshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
