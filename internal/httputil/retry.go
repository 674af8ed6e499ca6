// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first wait after a throttled response when the
// server gives no Retry-After. Tests shrink it.
var RetryBaseDelay = 10 * time.Second

// maxRetryAfter caps a server-supplied Retry-After value.
var maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// throttled reports whether status asks the client to come back later.
func throttled(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry sends req and resends it while the server answers 429 or
// 503, up to maxRetries extra times (0 means 5). Each wait is the
// response's Retry-After when present, otherwise RetryBaseDelay doubled per
// attempt: 10 s, 20 s, 40 s, 80 s, 160 s.
//
// Requests with a body are replayed through req.GetBody, which
// http.NewRequest sets for in-memory readers. After the last retry the
// throttled response is returned unread so the caller can inspect it. A
// context cancelled during a wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	wait := RetryBaseDelay

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, fmt.Errorf("%s %s: cannot replay request body", req.Method, req.URL)
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			r.Body = body
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}
		if !throttled(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		d := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		if d <= 0 {
			d = wait
		}
		wait *= 2
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// retryAfter parses Retry-After as delta seconds or an HTTP date relative
// to now. Past dates and garbage yield zero.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	return min(d, maxRetryAfter)
}
