// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 2048

// StatusError describes a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// ClientError reports whether the status is in the 4xx class.
func (e *StatusError) ClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// CheckStatus returns nil for a 2xx response. Otherwise it reads up to 2 KiB
// of the body into a *StatusError. The body is left for the caller to close.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		if resp.Request.URL != nil {
			u := *resp.Request.URL
			u.RawQuery = ""
			e.URL = u.String()
		}
	}
	return e
}
