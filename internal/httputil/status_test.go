// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusCreated)
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("  missing field  "))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/ok")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NoError(t, CheckStatus(resp))

	resp, err = ts.Client().Get(ts.URL + "/bad?key=secret")
	require.NoError(t, err)
	err = CheckStatus(resp)
	resp.Body.Close()

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "missing field", se.Body)
	assert.True(t, se.ClientError())
	assert.NotContains(t, se.Error(), "secret")

	resp, err = ts.Client().Get(ts.URL + "/other")
	require.NoError(t, err)
	err = CheckStatus(resp)
	resp.Body.Close()
	require.True(t, errors.As(err, &se))
	assert.False(t, se.ClientError())
}
