package llm

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

type retryClient struct {
	next   Client
	cfg    fault.RetryConfig
	logger *slog.Logger
}

// WithRetry retries transient failures of next according to cfg.
func WithRetry(next Client, cfg fault.RetryConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryClient{next: next, cfg: cfg, logger: logger}
}

// Complete retries transient failures of the wrapped client.
func (r *retryClient) Complete(ctx context.Context, req Request) (*Response, error) {
	res := fault.WithRetryContext(ctx, r.cfg, func(ctx context.Context) (*Response, error) {
		return r.next.Complete(ctx, req)
	})
	if res.Attempts > 1 {
		r.logger.Debug("generation retried",
			slog.Int("attempts", res.Attempts),
			slog.Duration("elapsed", res.Duration),
			slog.Bool("ok", res.Err == nil),
		)
	}
	return res.Value, res.Err
}
