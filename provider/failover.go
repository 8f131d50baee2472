package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds the per-provider retry loop.
type RetryPolicy struct {
	MaxRetries int           // attempts per provider
	BaseDelay  time.Duration // first backoff, doubles each attempt
	MaxDelay   time.Duration // backoff cap
}

// DefaultRetryPolicy mirrors the shipped configuration defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// ExhaustedError is the terminal failover state: every configured
// provider failed. LastErrors keeps the final error per provider for
// the caller to surface.
type ExhaustedError struct {
	LastErrors map[string]error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.LastErrors))
	for name, err := range e.LastErrors {
		parts = append(parts, fmt.Sprintf("%s: %v", name, err))
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

// Failover tries providers in priority order, retrying transient
// failures with exponential backoff and advancing immediately on
// fatal ones. It holds no state between Generate calls.
type Failover struct {
	clients []Client
	policy  RetryPolicy
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	observe func(provider, outcome string)
}

// Option configures a Failover.
type Option func(*Failover)

// WithSleep replaces the backoff sleep; tests inject a fake clock.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Failover) { f.sleep = fn }
}

// WithObserver registers a callback invoked once per attempt with the
// outcome ("success", "transient", "fatal"); used to feed metrics.
func WithObserver(fn func(provider, outcome string)) Option {
	return func(f *Failover) { f.observe = fn }
}

// NewFailover builds the failover chain. Clients must already be in
// priority order, preferred first.
func NewFailover(clients []Client, policy RetryPolicy, logger *zap.Logger, opts ...Option) (*Failover, error) {
	if len(clients) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Failover{
		clients: clients,
		policy:  policy,
		logger:  logger,
		sleep:   sleepCtx,
		observe: func(string, string) {},
	}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// Providers returns the configured provider names in priority order.
func (f *Failover) Providers() []string {
	names := make([]string, len(f.clients))
	for i, c := range f.clients {
		names[i] = c.Name()
	}
	return names
}

// Generate runs the bounded state machine:
//
//	ATTEMPTING(i) -> SUCCESS
//	             -> RETRY(i, attempt+1)   on transient error
//	             -> ADVANCE(i+1)          on fatal error or retries spent
//	FAILED when i exceeds the provider count.
func (f *Failover) Generate(ctx context.Context, prompt string) (Result, error) {
	lastErrs := make(map[string]error, len(f.clients))

	for _, client := range f.clients {
		name := client.Name()
		for attempt := 0; attempt < f.policy.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			res, err := client.Generate(ctx, prompt)
			if err == nil {
				f.observe(name, "success")
				f.logger.Info("provider call succeeded",
					zap.String("provider", name),
					zap.Int("attempt", attempt+1),
					zap.Duration("latency", res.Latency))
				return res, nil
			}
			lastErrs[name] = err

			var fatal *FatalError
			if errors.As(err, &fatal) {
				f.observe(name, "fatal")
				f.logger.Warn("provider failed fatally, advancing",
					zap.String("provider", name), zap.Error(err))
				break // ADVANCE
			}
			f.observe(name, "transient")
			f.logger.Warn("provider attempt failed",
				zap.String("provider", name),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if attempt+1 < f.policy.MaxRetries {
				if err := f.sleep(ctx, f.policy.delay(attempt)); err != nil {
					return Result{}, err
				}
			}
		}
	}
	return Result{}, &ExhaustedError{LastErrors: lastErrs}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
