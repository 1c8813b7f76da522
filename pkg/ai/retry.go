package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Retry runs op until it succeeds, returns a fatal error, or the retry budget
// in cfg is exhausted. Errors that carry no classification are retried.
func Retry[T any](ctx context.Context, cfg RetryConfig, logger *slog.Logger, name string, op func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(cfg, attempt)
			logger.Info("Retrying provider call",
				slog.String("op", name),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("last_error", lastErr.Error()))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Provider call succeeded after retry",
					slog.String("op", name),
					slog.Int("attempts", attempt+1))
			}
			return result, nil
		}
		lastErr = err

		if IsFatal(err) {
			logger.Error("Fatal provider error, not retrying",
				slog.String("op", name),
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt+1))
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		logger.Warn("Recoverable provider error",
			slog.String("op", name),
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", cfg.MaxRetries))
	}

	return zero, fmt.Errorf("%s: exhausted all retry attempts (%d): %w", name, cfg.MaxRetries, lastErr)
}

// BackoffDelay computes the delay before the given retry attempt (1-based).
func BackoffDelay(cfg RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(cfg.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.JitterPercent > 0 {
		jitterRange := delay * float64(cfg.JitterPercent)
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
	}
	if delay < 0 {
		delay = float64(cfg.InitialDelay)
	}
	return time.Duration(delay)
}
