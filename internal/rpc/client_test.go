package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
	"github.com/stretchr/testify/require"
)

type jsonRPCRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// newTestNode serves canned JSON-RPC results per method.
// The first failures requests answer with 503 before any result is served.
func newTestNode(t *testing.T, failures int32, results map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= failures {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func testRetryConfig() *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    common.NewDuration(time.Millisecond),
		MaxBackoff:        common.NewDuration(5 * time.Millisecond),
		BackoffMultiplier: 2.0,
	}
}

func TestClientImplementsInterface(t *testing.T) {
	var _ pkgrpc.EthClient = (*Client)(nil)
}

func TestClient_CallContract(t *testing.T) {
	srv, calls := newTestNode(t, 0, map[string]any{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000001",
	})

	client, err := NewClient(context.Background(), srv.URL, testRetryConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	to := ethcommon.HexToAddress("0x01")
	out, err := client.CallContract(context.Background(), ethereum.CallMsg{To: &to}, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), new(big.Int).SetBytes(out))
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_GetLogsRetriesTransientErrors(t *testing.T) {
	srv, calls := newTestNode(t, 2, map[string]any{
		"eth_getLogs": []any{},
	})

	client, err := NewClient(context.Background(), srv.URL, testRetryConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	logs, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1),
		ToBlock:   big.NewInt(10),
	})
	require.NoError(t, err)
	require.Empty(t, logs)
	require.Equal(t, int32(3), calls.Load())
}

func TestClient_NonRetryableErrorFailsOnce(t *testing.T) {
	srv, calls := newTestNode(t, 0, map[string]any{})

	client, err := NewClient(context.Background(), srv.URL, testRetryConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetLogs(context.Background(), ethereum.FilterQuery{})
	require.ErrorContains(t, err, "method not found")
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	srv, calls := newTestNode(t, 10, map[string]any{})

	client, err := NewClient(context.Background(), srv.URL, testRetryConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetLogs(context.Background(), ethereum.FilterQuery{})
	require.ErrorContains(t, err, "eth_getLogs gave up after 3 attempts")
	require.Equal(t, int32(3), calls.Load())
}
