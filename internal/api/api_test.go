package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"insight-oracle-go/internal/chain"
	"insight-oracle-go/internal/database"
	"insight-oracle-go/internal/insight"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/pricing"
	"insight-oracle-go/internal/rewards"
	"insight-oracle-go/internal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type fakeChain struct {
	status chain.Status
}

func (f *fakeChain) TransactionStatus(_ context.Context, _ string) (chain.Status, error) {
	return f.status, nil
}

func newTestServer(t *testing.T) (*Server, *rewards.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "the answer"}},
				}},
			},
		})
	}))
	t.Cleanup(provider.Close)

	catalogPath := filepath.Join(t.TempDir(), "models.yaml")
	catalogYaml := "default: flash-2.5\nmodels:\n  - key: flash-2.5\n    name: Gemini Flash 2.5\n    price: \"0.05\"\n    model_ids:\n      - gemini-2.5-flash\n"
	if err := os.WriteFile(catalogPath, []byte(catalogYaml), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	catalog, err := insight.LoadCatalog(catalogPath)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	generator, err := insight.NewGenerator(models.GenerationConfig{
		ApiKey:  "test-key",
		BaseUrl: provider.URL,
	}, catalog)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	ledger := rewards.NewLedger(db)
	calculator := pricing.NewCalculator(pricing.CategoryStrategy{}, models.PricingConfig{
		MinAmount: decimal.RequireFromString("0.01"),
		MaxAmount: decimal.RequireFromString("1.00"),
	})
	w := watcher.New(&fakeChain{status: chain.StatusSucceeded}, models.WatcherConfig{
		PollInterval:   2 * time.Millisecond,
		ConfirmTimeout: time.Second,
		CleanupWindow:  time.Hour,
	})

	cfg := &models.Config{
		Chain: models.ChainConfig{
			TokenDecimals:    6,
			RecipientAddress: "0xrecipient",
		},
		Pricing: models.PricingConfig{QuoteTtl: 15 * time.Minute},
	}

	return NewServer(calculator, ledger, w, generator, cfg), ledger
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/health", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.Code)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/api/insight/quote", models.QuoteRequest{
		Query:    "what is bitcoin",
		Category: models.CategoryCrypto,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var quote models.QuoteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &quote); err != nil {
		t.Fatalf("Failed to decode quote: %v", err)
	}
	if quote.Amount.String() != "0.08" {
		t.Errorf("Expected crypto price 0.08, got %s", quote.Amount.String())
	}
	if quote.Currency != "USDC" || quote.Recipient != "0xrecipient" {
		t.Errorf("Unexpected quote: %+v", quote)
	}
	if !quote.ExpiresAt.After(time.Now()) {
		t.Error("Expected quote expiry in the future")
	}
}

func TestQuoteEndpoint_RejectsEmptyQuery(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/api/insight/quote", models.QuoteRequest{Query: "  "})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank query, got %d", resp.Code)
	}
}

func TestModelsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/api/models", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var payload struct {
		Default string `json:"default"`
		Models  []struct {
			Key   string `json:"key"`
			Price string `json:"price"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode models: %v", err)
	}
	if payload.Default != "flash-2.5" || len(payload.Models) != 1 {
		t.Errorf("Unexpected models payload: %+v", payload)
	}
}

func TestOracleEndpoint_DeliversAndDedups(t *testing.T) {
	server, ledger := newTestServer(t)

	request := models.OracleRequest{
		Query:         "what is bitcoin",
		Category:      models.CategoryCrypto,
		Address:       "0xabc123def4567890",
		TransactionId: "0xtx1",
	}

	resp := doRequest(t, server, http.MethodPost, "/api/oracle", request)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var oracle models.OracleResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &oracle); err != nil {
		t.Fatalf("Failed to decode oracle response: %v", err)
	}
	if oracle.Insight != "the answer" {
		t.Errorf("Unexpected insight: %s", oracle.Insight)
	}
	if oracle.ModelId != "gemini-2.5-flash" {
		t.Errorf("Expected effective model id, got %s", oracle.ModelId)
	}

	history, err := ledger.History(context.Background(), request.Address, 10, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(history))
	}

	// Same transaction id again must not produce a second insight.
	resp = doRequest(t, server, http.MethodPost, "/api/oracle", request)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected 409 on replay, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRewardsEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/api/rewards/0xabc123def4567890", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var account models.RewardAccount
	if err := json.Unmarshal(resp.Body.Bytes(), &account); err != nil {
		t.Fatalf("Failed to decode account: %v", err)
	}
	if account.ReferralCode != "ABC123" {
		t.Errorf("Expected referral code ABC123, got %s", account.ReferralCode)
	}

	// Record a referral for another address with that code.
	resp = doRequest(t, server, http.MethodPost, "/api/rewards/referral", map[string]string{
		"address": "0x9999999999999999",
		"code":    "abc123",
	})
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200 recording referral, got %d: %s", resp.Code, resp.Body.String())
	}

	// Self-referral is rejected.
	resp = doRequest(t, server, http.MethodPost, "/api/rewards/referral", map[string]string{
		"address": "0xabc123def4567890",
		"code":    "ABC123",
	})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for self-referral, got %d", resp.Code)
	}

	// Unknown code is a 404.
	resp = doRequest(t, server, http.MethodPost, "/api/rewards/referral", map[string]string{
		"address": "0x9999999999999999",
		"code":    "NOPE00",
	})
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown code, got %d", resp.Code)
	}
}

func TestInsightHistoryEndpoints(t *testing.T) {
	server, ledger := newTestServer(t)
	address := "0xabc123def4567890"

	resp := doRequest(t, server, http.MethodGet, "/api/insights/"+address, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var payload struct {
		Insights []models.Insight `json:"insights"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode insights: %v", err)
	}
	if len(payload.Insights) != 0 {
		t.Errorf("Expected empty history, got %d", len(payload.Insights))
	}

	delivered := models.Insight{
		Id:            "i1",
		Address:       address,
		Query:         "q",
		Category:      models.CategoryGeneral,
		Model:         "gemini-2.5-flash",
		Answer:        "a",
		Cost:          decimal.RequireFromString("0.05"),
		TransactionId: "0xtx9",
		CreatedAt:     time.Now().UTC(),
	}
	if err := ledger.SettleInsight(context.Background(), delivered); err != nil {
		t.Fatalf("SettleInsight failed: %v", err)
	}

	resp = doRequest(t, server, http.MethodDelete, "/api/insights/"+address, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200 clearing history, got %d", resp.Code)
	}

	history, err := ledger.History(context.Background(), address, 10, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected cleared history, got %d entries", len(history))
	}
}
