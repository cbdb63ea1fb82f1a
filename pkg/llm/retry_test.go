package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/bookgraph/pkg/fault"
	"github.com/randalmurphal/bookgraph/pkg/llm"
)

var quick = fault.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

func TestWithRetry_RecoversFromTransient(t *testing.T) {
	calls := 0
	inner := llm.ClientFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		calls++
		if calls == 1 {
			return nil, &fault.HTTPError{StatusCode: 503}
		}
		return &llm.Response{Content: "ok"}, nil
	})

	resp, err := llm.WithRetry(inner, quick, nil).Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_PermanentNotRetried(t *testing.T) {
	calls := 0
	inner := llm.ClientFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		calls++
		return nil, &fault.HTTPError{StatusCode: 401}
	})

	_, err := llm.WithRetry(inner, quick, nil).Complete(context.Background(), llm.Request{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
