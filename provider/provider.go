// Package provider abstracts the text-generation backends and the
// retry/failover policy that sits in front of them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// systemPrompt is shared by every backend.
const systemPrompt = "You are a helpful assistant that generates engaging conversation content for a space-themed game."

const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 4096
)

// Client is a single text-generation backend: accept a prompt, return
// text. Adding a backend means adding an implementation, never
// branching on provider identity in shared code.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (Result, error)
}

// Settings carries the per-backend configuration.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Result is the raw outcome of one successful provider call.
type Result struct {
	Provider   string
	Text       string
	Latency    time.Duration
	TokensUsed int64
}

// TransientError marks a failure worth retrying on the same provider:
// timeouts, rate limits and 5xx-class responses.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that retrying cannot fix on this
// provider (bad credentials, malformed request); failover advances
// immediately.
type FatalError struct {
	Provider string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Provider, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// classify wraps err as transient or fatal based on the HTTP status
// of the underlying API error. Timeouts, rate limits and 5xx-class
// responses retry; auth and malformed-request responses do not.
func classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case status == 408 || status == 429 || status >= 500:
		return &TransientError{Provider: provider, Err: err}
	case status >= 400:
		return &FatalError{Provider: provider, Err: err}
	}
	// No HTTP status: context timeouts and transport-level errors.
	// Both are worth a retry.
	return &TransientError{Provider: provider, Err: err}
}

// emptyResult is what backends return when the model answered with no
// usable text; treated as transient since a retry usually fixes it.
func emptyResult(provider string) error {
	return &TransientError{Provider: provider, Err: errors.New("empty completion")}
}
