package llm

import (
	"context"
	"time"
)

// baseProvider holds shared retry configuration for LLM providers.
type baseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// newBaseProvider creates a base provider with sane defaults.
func newBaseProvider(name string, maxRetries int, retryDelay time.Duration) baseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return baseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// retry executes op with linear backoff if isRetryable returns true.
func (b *baseProvider) retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}
