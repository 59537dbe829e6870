package lnemail

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/tests/testutil"
)

func newTestClient(baseURL, token string) *Client {
	c := NewClient(baseURL, WithBackoff(time.Millisecond))
	c.SetToken(token)
	return c
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "tok")
	_, err := c.ListEmails(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, "").CheckHealth(context.Background())
	assert.True(t, res.Success)
	assert.Empty(t, auth)
}

func TestHTTPErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "bad").ListEmails(context.Background())
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, "HTTP 401: Unauthorized", httpErr.Error())
	assert.True(t, IsUnauthorized(err))
}

func TestRetryOn429(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"1"}]`)
	}))
	defer srv.Close()

	emails, err := newTestClient(srv.URL, "tok").ListEmails(context.Background())
	require.NoError(t, err)
	assert.Len(t, emails, 1)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetryOn429GivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithBackoff(time.Millisecond), WithMaxRetries(1))
	_, err := c.ListEmails(context.Background())

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSetTokenIsUsedByLaterRequests(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Update(func(f *testutil.FakeAPI) { f.Token = "good" })

	c := newTestClient(api.URL(), "bad")
	_, err := c.GetAccount(context.Background())
	require.Error(t, err)

	c.SetToken("good")
	info, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@lnemail.net", info.EmailAddress)
	assert.Equal(t, "good", c.Token())
}
