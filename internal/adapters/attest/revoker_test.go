package attest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRevoker levanta un servicio de attestation falso.
// El limiter se configura alto para no frenar los tests.
func newTestRevoker(t *testing.T, handler http.HandlerFunc) *Revoker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRevoker(srv.URL, 1000, false)
}

func TestRevokeAttestations_AllRevoked(t *testing.T) {
	var calls atomic.Int32
	r := newTestRevoker(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)

		var body revokeRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.NotEmpty(t, body.UID)

		json.NewEncoder(w).Encode(revokeResponse{TxHash: "0xdeadbeef"})
	})

	n, err := r.RevokeAttestations(context.Background(), []string{"uid-1", "uid-2", "uid-3"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRevokeAttestations_PartialCountOnFailure(t *testing.T) {
	var calls atomic.Int32
	r := newTestRevoker(t, func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) > 2 {
			http.Error(w, `{"error":"invalid uid"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(revokeResponse{TxHash: "0x1"})
	})

	n, err := r.RevokeAttestations(context.Background(), []string{"uid-1", "uid-2", "uid-bad"})
	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, err.Error(), "uid-bad")
}

func TestRevokeAttestations_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(revokeResponse{TxHash: "0x1"})
	}))
	t.Cleanup(srv.Close)

	r := NewRevoker(srv.URL, 1000, false)
	r.retryWait = time.Millisecond

	n, err := r.RevokeAttestations(context.Background(), []string{"uid-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRevokeAttestations_DryRun(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	r := NewRevoker(srv.URL, 1000, true)
	n, err := r.RevokeAttestations(context.Background(), []string{"uid-1", "uid-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, calls.Load(), "dry run must not hit the service")
}

func TestRevokeAttestations_EmptyList(t *testing.T) {
	r := NewRevoker("", 1000, false)
	n, err := r.RevokeAttestations(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
