package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"insight-oracle-go/internal/models"
)

const testCatalogYaml = `
default: flash-2.5
models:
  - key: flash-2.5
    name: Gemini Flash 2.5
    price: "0.05"
    model_ids:
      - gemini-2.0-flash-exp
      - gemini-2.5-flash
  - key: pro
    name: Gemini Pro
    price: "0.10"
    model_ids:
      - gemini-1.5-pro
`

func writeTestCatalog(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(testCatalogYaml), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if catalog.DefaultKey() != "flash-2.5" {
		t.Errorf("Expected default flash-2.5, got %s", catalog.DefaultKey())
	}
	if !catalog.Known("pro") {
		t.Error("Expected pro to be known")
	}
	if len(catalog.List()) != 2 {
		t.Errorf("Expected 2 models, got %d", len(catalog.List()))
	}

	spec := catalog.Resolve("pro")
	if spec.Name != "Gemini Pro" || spec.PriceAmount().String() != "0.1" {
		t.Errorf("Unexpected pro spec: %+v", spec)
	}
}

func TestCatalog_UnknownKeyResolvesToDefault(t *testing.T) {
	catalog, err := LoadCatalog(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	spec := catalog.Resolve("does-not-exist")
	if spec.Key != "flash-2.5" {
		t.Errorf("Expected fallback to default, got %s", spec.Key)
	}

	spec = catalog.Resolve("")
	if spec.Key != "flash-2.5" {
		t.Errorf("Expected empty key to resolve to default, got %s", spec.Key)
	}
}

func TestLoadCatalog_RejectsInvalidPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	bad := strings.Replace(testCatalogYaml, `"0.05"`, `"free"`, 1)
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	if _, err := LoadCatalog(path); err == nil {
		t.Error("Expected error for invalid price")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("what is bitcoin", models.CategoryCrypto)
	if !strings.Contains(prompt, "cryptocurrency expert") {
		t.Errorf("Expected crypto persona, got: %s", prompt)
	}
	if !strings.HasSuffix(prompt, "Query: what is bitcoin") {
		t.Errorf("Expected query suffix, got: %s", prompt)
	}

	unknown := BuildPrompt("q", models.Category("astrology"))
	if !strings.Contains(unknown, "knowledgeable AI assistant") {
		t.Errorf("Expected general persona for unknown category, got: %s", unknown)
	}
}

// fakeProvider serves generateContent; model ids listed in failing return 503.
type fakeProvider struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (f *fakeProvider) handler(w http.ResponseWriter, r *http.Request) {
	// Path: /v1beta/models/{model}:generateContent
	parts := strings.Split(r.URL.Path, "/")
	modelPart := parts[len(parts)-1]
	modelId := strings.TrimSuffix(modelPart, ":generateContent")

	f.mu.Lock()
	f.calls = append(f.calls, modelId)
	failing := f.failing[modelId]
	f.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 503, "message": "model overloaded"},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": "answer from " + modelId}},
			}},
		},
	})
}

func newTestGenerator(t *testing.T, provider *fakeProvider) (*Generator, *httptest.Server) {
	server := httptest.NewServer(http.HandlerFunc(provider.handler))
	t.Cleanup(server.Close)

	catalog, err := LoadCatalog(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	generator, err := NewGenerator(models.GenerationConfig{
		ApiKey:  "test-key",
		BaseUrl: server.URL,
	}, catalog)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return generator, server
}

func TestGenerate_FirstModelSucceeds(t *testing.T) {
	provider := &fakeProvider{failing: map[string]bool{}}
	generator, _ := newTestGenerator(t, provider)

	result, err := generator.Generate(context.Background(), "what is bitcoin", models.CategoryCrypto, "flash-2.5")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.EffectiveModelId != "gemini-2.0-flash-exp" {
		t.Errorf("Expected first model id, got %s", result.EffectiveModelId)
	}
	if result.ModelName != "Gemini Flash 2.5" {
		t.Errorf("Expected display name, got %s", result.ModelName)
	}
	if result.Answer != "answer from gemini-2.0-flash-exp" {
		t.Errorf("Unexpected answer: %s", result.Answer)
	}
}

func TestGenerate_FallsBackWhenPreferredFails(t *testing.T) {
	provider := &fakeProvider{failing: map[string]bool{"gemini-2.0-flash-exp": true}}
	generator, _ := newTestGenerator(t, provider)

	result, err := generator.Generate(context.Background(), "q", models.CategoryGeneral, "flash-2.5")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.EffectiveModelId != "gemini-2.5-flash" {
		t.Errorf("Expected fallback model id, got %s", result.EffectiveModelId)
	}
	provider.mu.Lock()
	calls := len(provider.calls)
	provider.mu.Unlock()
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}
}

func TestGenerate_AllModelsFail(t *testing.T) {
	provider := &fakeProvider{failing: map[string]bool{
		"gemini-2.0-flash-exp": true,
		"gemini-2.5-flash":     true,
	}}
	generator, _ := newTestGenerator(t, provider)

	_, err := generator.Generate(context.Background(), "q", models.CategoryGeneral, "flash-2.5")
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Fatalf("Expected ErrAllModelsFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Expected last provider error in message, got: %v", err)
	}
}

func TestNewGenerator_RequiresApiKey(t *testing.T) {
	catalog, err := LoadCatalog(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if _, err := NewGenerator(models.GenerationConfig{}, catalog); err == nil {
		t.Error("Expected error for missing api key")
	}
}
