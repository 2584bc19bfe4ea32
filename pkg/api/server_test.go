package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	requests []*types.DataRequest
	err      error
}

func (f *fakeStore) GetRequest(id uint64) (*types.DataRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, req := range f.requests {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
}

func (f *fakeStore) ListRequests(state types.DrState) ([]*types.DataRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.DataRequest
	for _, req := range f.requests {
		if state == "" || req.State == state {
			out = append(out, req)
		}
	}
	return out, nil
}

func newFixture() *fakeStore {
	observed := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	return &fakeStore{requests: []*types.DataRequest{
		types.NewDataRequest(0, []byte{0x01, 0x02}),
		types.FinishedDataRequest(1, []byte{0x03}, common.HexToHash("0xabc"), observed),
		types.NewDataRequest(2, nil),
	}}
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestListRequests(t *testing.T) {
	s := NewServer("", newFixture())

	tests := []struct {
		name    string
		target  string
		wantIDs []uint64
	}{
		{name: "all", target: "/v1/requests", wantIDs: []uint64{0, 1, 2}},
		{name: "new only", target: "/v1/requests?state=new", wantIDs: []uint64{0, 2}},
		{name: "finished only", target: "/v1/requests?state=finished", wantIDs: []uint64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp ListResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, len(tt.wantIDs), resp.Count)
			var ids []uint64
			for _, r := range resp.Requests {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestListRequests_EmptyStoreIsEmptyArray(t *testing.T) {
	w := do(t, NewServer("", &fakeStore{}), http.MethodGet, "/v1/requests")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests":[]`)
}

func TestListRequests_BadState(t *testing.T) {
	w := do(t, NewServer("", newFixture()), http.MethodGet, "/v1/requests?state=resolved")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "resolved")
}

func TestGetRequest(t *testing.T) {
	s := NewServer("", newFixture())

	w := do(t, s, http.MethodGet, "/v1/requests/1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RequestResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.ID)
	assert.Equal(t, "finished", resp.State)
	assert.Equal(t, "0x03", resp.Payload)
	assert.Equal(t, common.HexToHash("0xabc").Hex(), resp.ResolutionHash)
	require.NotNil(t, resp.ObservedAt)

	w = do(t, s, http.MethodGet, "/v1/requests/0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "dr_tx_hash")
	assert.NotContains(t, w.Body.String(), "observed_at")
}

func TestGetRequest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		store      *fakeStore
		target     string
		wantStatus int
	}{
		{name: "unknown id", store: newFixture(), target: "/v1/requests/9", wantStatus: http.StatusNotFound},
		{name: "negative id", store: newFixture(), target: "/v1/requests/-1", wantStatus: http.StatusBadRequest},
		{name: "not a number", store: newFixture(), target: "/v1/requests/abc", wantStatus: http.StatusBadRequest},
		{name: "store down", store: &fakeStore{err: errors.New("pool closed")}, target: "/v1/requests/1", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, NewServer("", tt.store), http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestReadOnly(t *testing.T) {
	s := NewServer("", newFixture())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			w := do(t, s, method, "/v1/requests")
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
		})
	}

	assert.True(t, isReadOnlyMethod(http.MethodHead))
	assert.False(t, isReadOnlyMethod(http.MethodOptions))
}

func TestHealthEndpoints(t *testing.T) {
	s := NewServer("", newFixture())

	w := do(t, s, http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")

	metrics.RegisterComponent(metrics.ComponentLedger, true, "")
	metrics.RegisterComponent(metrics.ComponentStore, true, "")
	metrics.RegisterComponent(metrics.ComponentPoller, true, "")

	w = do(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	metrics.UpdateComponent(metrics.ComponentLedger, false, "ethereum node down")
	w = do(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "ethereum node down")

	w = do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	metrics.UpdateComponent(metrics.ComponentLedger, true, "")
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer("", newFixture())
	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("/v1/requests/{id}", "404"))

	do(t, s, http.MethodGet, "/v1/requests/77")

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("/v1/requests/{id}", "404")))

	w := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "drbridge_api_requests_total"))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := NewServer("127.0.0.1:0", newFixture())
	require.NoError(t, s.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", newFixture())

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	// Shutdown may run before or after the listener is up; both must stop it
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
