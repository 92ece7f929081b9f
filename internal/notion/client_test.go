package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/activitymap/internal/record"
)

const testDatasource = "0f3c2a4e-9d1b-4c6a-8e7f-1a2b3c4d5e6f"

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:     srv.URL,
		Token:       "secret_test",
		RateLimit:   1000,
		MaxRetries:  2,
		BaseBackoff: time.Millisecond,
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func collect(ctx context.Context, src record.Source) ([]record.Raw, error) {
	var out []record.Raw
	for r, err := range src.Records(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestDataSource_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/data_sources/"+testDatasource+"/query", r.URL.Path)
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultVersion, r.Header.Get("Notion-Version"))

		var req queryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100, req.PageSize)

		switch req.StartCursor {
		case "":
			_, _ = w.Write([]byte(`{"results":[{"id":"p1"},{"id":"p2"}],"has_more":true,"next_cursor":"c2"}`))
		case "c2":
			_, _ = w.Write([]byte(`{"results":[{"id":"p3"}],"has_more":false,"next_cursor":null}`))
		default:
			t.Errorf("unexpected cursor %q", req.StartCursor)
		}
	}))
	defer srv.Close()

	got, err := collect(context.Background(), newTestClient(t, srv).DataSource(testDatasource))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.JSONEq(t, `{"id":"p3"}`, string(got[2].JSON))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDataSource_StopsFetchingWhenConsumerStops(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"id":"p1"}],"has_more":true,"next_cursor":"next"}`))
	}))
	defer srv.Close()

	for range newTestClient(t, srv).DataSource(testDatasource).Records(context.Background()) {
		break
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_RetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
	}{
		{"rate limited", http.StatusTooManyRequests, map[string]string{"Retry-After": "0"}},
		{"server error", http.StatusBadGateway, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					for k, v := range tt.header {
						w.Header().Set(k, v)
					}
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`))
					return
				}
				_, _ = w.Write([]byte(`{"results":[{"id":"p1"}],"has_more":false}`))
			}))
			defer srv.Close()

			got, err := collect(context.Background(), newTestClient(t, srv).DataSource(testDatasource))
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestQuery_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := collect(context.Background(), newTestClient(t, srv).DataSource(testDatasource))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_DoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`, ErrUnauthorized, "API token is invalid."},
		{"not found", http.StatusNotFound, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find data source"}`, nil, "object_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := collect(context.Background(), newTestClient(t, srv).DataSource(testDatasource))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NotContains(t, err.Error(), "secret_test")
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestQuery_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := collect(ctx, newTestClient(t, srv).DataSource(testDatasource))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, 1500*time.Millisecond, parseRetryAfter("1.5"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
