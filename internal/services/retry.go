package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/finreview/compliancereviewflow/internal/gcp"
)

// RetryPolicy bounds repeated attempts against the generation backend.
// MaxAttempts of 1 (the default) means no retries at all.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// RetryPolicyFromEnv reads the retry knobs, defaulting to a single attempt.
func RetryPolicyFromEnv() RetryPolicy {
	attempts, err := strconv.Atoi(gcp.GetEnv("REVIEW_MAX_ATTEMPTS", "1"))
	if err != nil || attempts < 1 {
		attempts = 1
	}
	delayMs, err := strconv.Atoi(gcp.GetEnv("REVIEW_RETRY_BASE_DELAY_MS", "500"))
	if err != nil || delayMs < 0 {
		delayMs = 500
	}
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Duration(delayMs) * time.Millisecond}
}

// NewRetryingGenerator decorates a Generator with bounded retries on
// transient transport failures. Marker strings (safety blocks, empty
// responses) are successful generations and are never retried.
func NewRetryingGenerator(base gcp.Generator, policy RetryPolicy) gcp.Generator {
	if policy.MaxAttempts <= 1 {
		return base
	}
	return &retryingGenerator{base: base, policy: policy}
}

type retryingGenerator struct {
	base   gcp.Generator
	policy RetryPolicy
}

func (r *retryingGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	delay := r.policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		text, err := r.base.Generate(ctx, parts...)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransientGenerationError(err) || attempt == r.policy.MaxAttempts {
			return "", err
		}
		slog.Warn("Generation attempt failed; retrying.", "attempt", attempt, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
	return "", lastErr
}

func isTransientGenerationError(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "429", "503"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
