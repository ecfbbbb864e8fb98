package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func newRpcTestServer(t *testing.T, result interface{}) *Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode rpc request: %v", err)
		}
		if req["method"] != "eth_getTransactionReceipt" {
			t.Errorf("Unexpected method: %v", req["method"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  result,
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestTransactionStatus_PendingWhenNoReceipt(t *testing.T) {
	client := newRpcTestServer(t, nil)

	status, err := client.TransactionStatus(context.Background(), "0xtx1")
	if err != nil {
		t.Fatalf("TransactionStatus failed: %v", err)
	}
	if status != StatusPending {
		t.Errorf("Expected pending, got %s", status)
	}
	if status.Terminal() {
		t.Error("Pending must not be terminal")
	}
}

func TestTransactionStatus_Succeeded(t *testing.T) {
	client := newRpcTestServer(t, map[string]string{
		"transactionHash": "0xtx1",
		"blockNumber":     "0x10",
		"status":          "0x1",
	})

	status, err := client.TransactionStatus(context.Background(), "0xtx1")
	if err != nil {
		t.Fatalf("TransactionStatus failed: %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("Expected succeeded, got %s", status)
	}
	if !status.Terminal() {
		t.Error("Succeeded must be terminal")
	}
}

func TestTransactionStatus_Failed(t *testing.T) {
	client := newRpcTestServer(t, map[string]string{
		"transactionHash": "0xtx1",
		"blockNumber":     "0x10",
		"status":          "0x0",
	})

	status, err := client.TransactionStatus(context.Background(), "0xtx1")
	if err != nil {
		t.Fatalf("TransactionStatus failed: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("Expected failed, got %s", status)
	}
}

func TestQuantize(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int32
		expected int64
	}{
		{"0.08", 6, 80000},
		{"0.05", 6, 50000},
		{"1.00", 6, 1000000},
		{"0.076", 6, 76000},
		{"0.0000001", 6, 0}, // below native precision truncates
	}

	for _, tc := range cases {
		units := Quantize(decimal.RequireFromString(tc.amount), tc.decimals)
		if units != tc.expected {
			t.Errorf("Quantize(%s, %d): expected %d, got %d", tc.amount, tc.decimals, tc.expected, units)
		}
	}
}

func TestClassifySigningError(t *testing.T) {
	cases := []struct {
		raw      string
		expected error
	}{
		{"MetaMask Tx Signature: User denied transaction signature", ErrUserCancelled},
		{"user rejected the request", ErrUserCancelled},
		{"request cancelled by wallet", ErrUserCancelled},
		{"insufficient funds for gas * price + value", ErrInsufficientFunds},
		{"execution reverted", ErrSubmissionFailed},
	}

	for _, tc := range cases {
		classified := ClassifySigningError(errors.New(tc.raw))
		if !errors.Is(classified, tc.expected) {
			t.Errorf("ClassifySigningError(%q): expected %v, got %v", tc.raw, tc.expected, classified)
		}
	}

	if ClassifySigningError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
