package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"feedme-console/internal/auth"
	"feedme-console/internal/dto"
	"feedme-console/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, maxRetries int) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := auth.NewStaticTokenSource("test-token", logger.Noop{})
	c := NewHTTPClient(server.URL, tokens, 5*time.Second, maxRetries)
	c.baseDelay = time.Millisecond // keep retry waits out of the test runtime
	return c
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"conversations":[],"total":0,"page":1,"page_size":20}`))
	}), 0)

	_, err := c.ListConversations(context.Background(), dto.ConversationListParams{ShowAll: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":7,"title":"Recovered"}`))
	}), 3)

	conv, err := c.GetConversation(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Recovered", conv.Title)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_found","message":"conversation does not exist"}`))
	}), 3)

	_, err := c.GetConversation(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx responses are not retried")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "not_found", httpErr.Code)
	assert.Equal(t, "conversation does not exist", httpErr.Message)
	assert.True(t, IsNotFound(err))
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), 2)

	_, err := c.GetConversation(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestClientValidatesBeforeSending(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid requests must not reach the backend")
	}), 0)

	_, err := c.UploadTranscript(context.Background(), dto.UploadTranscriptRequest{})
	assert.Error(t, err, "missing required fields fail validation locally")
}

func TestClientParsesFolderCounts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/folders/counts", r.URL.Path)
		w.Write([]byte(`{"counts":{"1":3,"5":0,"junk":9}}`))
	}), 0)

	counts, err := c.GetFolderCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.FolderCounts{1: 3, 5: 0}, counts)
}

func TestRetryDelayProgressionAndCap(t *testing.T) {
	c := &HTTPClient{baseDelay: 100 * time.Millisecond, maxDelay: 2 * time.Second}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, ""))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, ""))
	assert.Equal(t, 2*time.Second, c.retryDelay(10, ""), "delay is capped")
	assert.Equal(t, time.Second, c.retryDelay(1, "1"), "Retry-After wins over the computed delay")
	assert.Equal(t, 2*time.Second, c.retryDelay(1, "60"), "Retry-After is capped too")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))

	future := time.Now().Add(30 * time.Second).UTC().Format(time.RFC1123)
	assert.Greater(t, parseRetryAfter(future), 20*time.Second)
}
