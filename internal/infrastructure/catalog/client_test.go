package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiritlens/backend/internal/domain"
)

func newTestClient(url string) *Client {
	c := NewClient(Config{BaseURL: url, APIKey: "test-api-key", PageSize: 2, RequestsPerSecond: 1000}, nil)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func pageBody(t *testing.T, spirits ...map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"spirits": spirits})
	require.NoError(t, err)
	return body
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://api.example.com/", APIKey: "k"}, nil)

	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, 100, client.pageSize)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestLinearBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, linearBackoff(1))
	assert.Equal(t, 1000*time.Millisecond, linearBackoff(2))
	assert.Equal(t, 1500*time.Millisecond, linearBackoff(3))
}

func TestFetchRecords_PagesUntilNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/spirits", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			w.Write(pageBody(t,
				map[string]interface{}{"id": 1, "name": "Buffalo Trace", "price": "$29.99"},
				map[string]interface{}{"id": "2", "name": "Eagle Rare 10", "price": 39.99, "abv": "45%"},
			))
		case 2:
			w.Write(pageBody(t, map[string]interface{}{"id": 3, "name": "Blanton's", "created_at": "2024-05-01T00:00:00Z"}))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, 29.99, records[0].Price)
	assert.Equal(t, 45.0, records[1].ABV)
	assert.Equal(t, 39.99, records[1].Price)
	assert.Equal(t, 2024, records[2].CreatedAt.Year())
}

func TestFetchRecords_EmptyPageEnds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write(pageBody(t, map[string]interface{}{"id": "a", "name": "Weller"}))
			return
		}
		w.Write(pageBody(t))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchRecords_HasMoreFalseEnds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"spirits":[{"id":"a","name":"Weller"}],"has_more":false}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRecords_ServerError_Retries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch {
		case n < 3:
			w.WriteHeader(http.StatusInternalServerError)
		case n == 3:
			w.Write(pageBody(t, map[string]interface{}{"id": "a", "name": "Weller"}))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestFetchRecords_GivesUpAfterThreeAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecords(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}

func TestFetchRecords_TooManyRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecords(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestFetchRecords_ClientError_NoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecords(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRecords_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetchRecords_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).FetchRecords(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
