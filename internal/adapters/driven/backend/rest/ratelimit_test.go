package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	r := NewRateLimiter(0, 0)
	assert.InDelta(t, DefaultRequestsPerSecond, float64(r.limiter.Limit()), 0.001)
	assert.Equal(t, DefaultBurst, r.limiter.Burst())
}

func TestRateLimiter_WaitWithinBurst(t *testing.T) {
	r := NewRateLimiter(1, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	r := NewRateLimiter(0.001, 1)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	header := func(v string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if v != "" {
			resp.Header.Set(HeaderRetryAfter, v)
		}
		return resp
	}

	tests := []struct {
		name string
		resp *http.Response
		want time.Duration
	}{
		{"nil response", nil, defaultBackoff},
		{"missing header", header(""), defaultBackoff},
		{"seconds", header("7"), 7 * time.Second},
		{"http date", header(now.Add(90 * time.Second).Format(http.TimeFormat)), 90 * time.Second},
		{"past date", header(now.Add(-time.Minute).Format(http.TimeFormat)), defaultBackoff},
		{"garbage", header("soon"), defaultBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.resp, now))
		})
	}
}

func TestRateLimiter_RecordKeepsLongestBackoff(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRateLimiter(10, 10)
	r.now = func() time.Time { return now }

	long := &http.Response{Header: http.Header{HeaderRetryAfter: []string{"60"}}}
	short := &http.Response{Header: http.Header{HeaderRetryAfter: []string{"1"}}}

	r.RecordRateLimit(long)
	r.RecordRateLimit(short)
	assert.Equal(t, now.Add(time.Minute), r.RetryAt())
}
