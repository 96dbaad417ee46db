package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/health"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	release chan struct{}
	health  prediction.Health
	err     error
	calls   int
}

func (f *fakeChecker) Health(ctx context.Context) (prediction.Health, error) {
	f.calls++
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return prediction.Health{}, ctx.Err()
		}
	}

	return f.health, f.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		checker health.Checker
		status  prediction.AvailabilityStatus
		reason  string
	}{
		{
			name:    "ready",
			checker: &fakeChecker{health: prediction.Health{Status: "healthy", ModelLoaded: true}},
			status:  prediction.StatusReady,
		},
		{
			name:    "model not loaded",
			checker: &fakeChecker{health: prediction.Health{Status: "unhealthy", Message: "Model not loaded"}},
			status:  prediction.StatusModelNotLoaded,
			reason:  "Model not loaded",
		},
		{
			name:    "unreachable",
			checker: &fakeChecker{err: errors.New("connection refused")},
			status:  prediction.StatusOffline,
			reason:  health.ReasonOffline,
		},
		{
			name:    "not configured",
			checker: nil,
			status:  prediction.StatusOffline,
			reason:  health.ReasonNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := health.NewProbe(tt.checker, nil)
			assert.Equal(t, prediction.StatusUnknown, p.Availability().Status)

			got := p.Check(context.Background())
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, got, p.Availability())
			assert.Equal(t, tt.status == prediction.StatusReady, p.Available())
		})
	}
}

func TestStartDoesNotBlock(t *testing.T) {
	checker := &fakeChecker{
		release: make(chan struct{}),
		health:  prediction.Health{Status: "healthy", ModelLoaded: true},
	}
	p := health.NewProbe(checker, nil)

	updates := make(chan prediction.Availability, 4)
	require.NoError(t, p.Subscribe(updates))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Start(ctx)

	// unresolved: unknown and not available
	assert.False(t, p.Available())
	assert.Equal(t, prediction.StatusUnknown, p.Availability().Status)

	close(checker.release)

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("probe did not resolve")
	}
	assert.True(t, p.Available())
	assert.Equal(t, 1, checker.calls)

	select {
	case got := <-updates:
		assert.Equal(t, prediction.StatusReady, got.Status)
	case <-time.After(time.Second):
		t.Fatal("no availability published")
	}
}
