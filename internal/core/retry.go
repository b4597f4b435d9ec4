package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BackoffPolicy returns the delay to wait after the given 1-based attempt failed.
type BackoffPolicy func(attempt int) time.Duration

// LinearBackoff waits attempt*base after each failed attempt.
func LinearBackoff(base time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the real-time SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttemptError is the terminal failure of a retry sequence on one target.
type AttemptError struct {
	Class    FailureClass
	Attempts int
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", e.Class, e.Attempts, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// RetryController runs bounded, strictly sequential extraction attempts against one target.
type RetryController struct {
	extractor      Extractor
	proxies        ProxyProvider
	backoff        BackoffPolicy
	sleep          SleepFunc
	extractTimeout time.Duration
	metrics        MetricsRecorder
	logger         *zap.Logger
}

// RetryOption customizes a RetryController.
type RetryOption func(*RetryController)

// WithSleep replaces the real-time sleep, mainly for tests.
func WithSleep(sleep SleepFunc) RetryOption {
	return func(r *RetryController) {
		r.sleep = sleep
	}
}

// WithProxies serves a proxy per attempt from p.
func WithProxies(p ProxyProvider) RetryOption {
	return func(r *RetryController) {
		r.proxies = p
	}
}

// WithExtractTimeout bounds every single extraction call.
func WithExtractTimeout(d time.Duration) RetryOption {
	return func(r *RetryController) {
		r.extractTimeout = d
	}
}

// WithMetrics records attempt outcomes.
func WithMetrics(m MetricsRecorder) RetryOption {
	return func(r *RetryController) {
		r.metrics = m
	}
}

func NewRetryController(extractor Extractor, backoff BackoffPolicy, logger *zap.Logger, opts ...RetryOption) *RetryController {
	r := &RetryController{
		extractor: extractor,
		backoff:   backoff,
		sleep:     SleepContext,
		metrics:   NopMetrics(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run extracts target with at most budget attempts.
//
// Blocked and fatal failures stop immediately. Transient failures discard the proxy used for that
// attempt and back off before the next one. The returned error is always an *AttemptError.
func (r *RetryController) Run(ctx context.Context, target string, profile ClientProfile, budget int) (*Extraction, error) {
	if budget < 1 {
		budget = 1
	}

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		proxy := ""
		if r.proxies != nil {
			proxy = r.proxies.Acquire(ctx)
		}

		r.logger.Debug("Extraction attempt",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Int("budget", budget),
			zap.String("profile", profile.Name),
			zap.Bool("proxied", proxy != ""))

		extraction, err := r.extract(ctx, target, profile, proxy)
		if err == nil {
			r.metrics.RecordAttempt("success")
			return extraction, nil
		}

		class := ClassifyFailure(err.Error())
		r.metrics.RecordAttempt(class.String())
		lastErr = err

		switch class {
		case FailureBlocked, FailureFatal:
			r.logger.Info("Extraction stopped",
				zap.String("target", target),
				zap.Stringer("class", class),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, &AttemptError{Class: class, Attempts: attempt, Err: err}
		}

		if proxy != "" {
			r.proxies.ReportFailure(proxy)
		}

		r.logger.Warn("Transient extraction failure",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			return nil, &AttemptError{Class: FailureTransient, Attempts: attempt, Err: errors.Join(err, ctx.Err())}
		}

		if attempt < budget {
			if sleepErr := r.sleep(ctx, r.backoff(attempt)); sleepErr != nil {
				return nil, &AttemptError{Class: FailureTransient, Attempts: attempt, Err: errors.Join(err, sleepErr)}
			}
		}
	}

	return nil, &AttemptError{Class: FailureTransient, Attempts: budget, Err: lastErr}
}

func (r *RetryController) extract(ctx context.Context, target string, profile ClientProfile, proxy string) (*Extraction, error) {
	if r.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.extractTimeout)
		defer cancel()
	}
	return r.extractor.Extract(ctx, target, profile, proxy)
}
