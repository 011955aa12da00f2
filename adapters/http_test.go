package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, `{"id":"1"}`, string(body))
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	resp, err := DoRequest(context.Background(), server.Client(), &RequestData{
		Method:  "POST",
		Uri:     server.URL,
		Body:    []byte(`{"id":"1"}`),
		Headers: headers,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, "yes", resp.Headers.Get("X-Test"))
}

func TestDoRequestContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := DoRequest(ctx, server.Client(), &RequestData{Method: "GET", Uri: server.URL})
	assert.Error(t, err)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(DefaultHTTPAdapterConfig)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 50, transport.MaxIdleConns)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 60*time.Second, transport.IdleConnTimeout)
}
