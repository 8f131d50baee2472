package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedClient returns the queued errors in order, then succeeds.
type scriptedClient struct {
	name  string
	errs  []error
	calls int
}

func (c *scriptedClient) Name() string { return c.name }

func (c *scriptedClient) Generate(context.Context, string) (Result, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Provider: c.name, Text: "ok from " + c.name}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestFailover(t *testing.T, clients ...Client) *Failover {
	t.Helper()
	f, err := NewFailover(clients, RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second}, zap.NewNop(), WithSleep(noSleep))
	require.NoError(t, err)
	return f
}

func transient(name string) error {
	return &TransientError{Provider: name, Err: errors.New("rate limited")}
}

func fatal(name string) error {
	return &FatalError{Provider: name, Err: errors.New("bad api key")}
}

func TestFailoverFirstProviderSucceeds(t *testing.T) {
	a := &scriptedClient{name: "a"}
	b := &scriptedClient{name: "b"}
	res, err := newTestFailover(t, a, b).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "a", res.Provider)
	assert.Zero(t, b.calls)
}

func TestFailoverRetriesTransientThenSucceeds(t *testing.T) {
	a := &scriptedClient{name: "a", errs: []error{transient("a"), transient("a")}}
	res, err := newTestFailover(t, a).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, "a", res.Provider)
}

func TestFailoverAdvancesAfterRetriesExhausted(t *testing.T) {
	a := &scriptedClient{name: "a", errs: []error{transient("a"), transient("a"), transient("a")}}
	b := &scriptedClient{name: "b"}
	res, err := newTestFailover(t, a, b).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, "b", res.Provider)
}

func TestFailoverFatalAdvancesImmediately(t *testing.T) {
	a := &scriptedClient{name: "a", errs: []error{fatal("a")}}
	b := &scriptedClient{name: "b"}
	res, err := newTestFailover(t, a, b).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls, "fatal errors must not be retried")
	assert.Equal(t, "b", res.Provider)
}

func TestFailoverAllExhausted(t *testing.T) {
	a := &scriptedClient{name: "a", errs: []error{transient("a"), transient("a"), transient("a")}}
	b := &scriptedClient{name: "b", errs: []error{fatal("b")}}
	_, err := newTestFailover(t, a, b).Generate(context.Background(), "p")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.LastErrors, 2)
	assert.Contains(t, exhausted.LastErrors, "a")
	assert.Contains(t, exhausted.LastErrors, "b")
}

func TestFailoverHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &scriptedClient{name: "a"}
	_, err := newTestFailover(t, a).Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.calls)
}

func TestFailoverBackoffDelays(t *testing.T) {
	var delays []time.Duration
	record := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	a := &scriptedClient{name: "a", errs: []error{transient("a"), transient("a"), transient("a")}}
	f, err := NewFailover([]Client{a, &scriptedClient{name: "b"}},
		RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		zap.NewNop(), WithSleep(record))
	require.NoError(t, err)

	_, err = f.Generate(context.Background(), "p")
	require.NoError(t, err)
	// Exponential: 1s, 2s. No sleep after the last attempt on a
	// provider, and none before trying the next provider.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRetryPolicyDelayCap(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.delay(0))
	assert.Equal(t, 2*time.Second, p.delay(1))
	assert.Equal(t, 4*time.Second, p.delay(2))
	assert.Equal(t, 5*time.Second, p.delay(3))
	assert.Equal(t, 5*time.Second, p.delay(40))
}

func TestObserverSeesOutcomes(t *testing.T) {
	var outcomes []string
	a := &scriptedClient{name: "a", errs: []error{transient("a")}}
	f, err := NewFailover([]Client{a},
		RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		zap.NewNop(), WithSleep(noSleep),
		WithObserver(func(provider, outcome string) {
			outcomes = append(outcomes, provider+"/"+outcome)
		}))
	require.NoError(t, err)

	_, err = f.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/transient", "a/success"}, outcomes)
}
