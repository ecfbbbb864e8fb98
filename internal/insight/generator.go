/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package insight calls the generative-AI provider to turn a paid query into
// an answer. Each selectable model carries an ordered fallback list; the
// generator walks it until one provider model responds.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"insight-oracle-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	defaultBaseUrl  = "https://generativelanguage.googleapis.com"
	maxOutputTokens = 500
	temperature     = 0.7
)

// ErrAllModelsFailed means every model id in the fallback list was tried and
// none produced an answer. The wrapped error is the last attempt's failure.
var ErrAllModelsFailed = errors.New("all models failed")

// Result is a successful generation. EffectiveModelId records which fallback
// actually answered, which may differ from the first id of the selected model.
type Result struct {
	Answer           string
	ModelKey         string
	ModelName        string
	EffectiveModelId string
}

// Generator is the REST client for the generation provider.
type Generator struct {
	apiKey     string
	baseUrl    string
	catalog    *Catalog
	httpClient http.Client
}

func NewGenerator(cfg models.GenerationConfig, catalog *Catalog) (*Generator, error) {
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("generation api key is required")
	}

	baseUrl := cfg.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Generator{
		apiKey:     cfg.ApiKey,
		baseUrl:    baseUrl,
		catalog:    catalog,
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 60 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			DualStack: true,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   120 * time.Second,
	}, nil
}

// Catalog exposes the loaded model catalog.
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Generate produces an answer for a paid query. The selected model's fallback
// ids are tried in order; the first success wins. If every id fails, the
// returned error wraps ErrAllModelsFailed and the last attempt's error.
func (g *Generator) Generate(ctx context.Context, query string, category models.Category, modelKey string) (*Result, error) {
	spec := g.catalog.Resolve(modelKey)
	prompt := BuildPrompt(query, category)

	var lastErr error
	for i, modelId := range spec.ModelIds {
		zap.L().Debug("Trying generation model",
			zap.String("model_id", modelId),
			zap.Int("attempt", i+1),
			zap.Int("total", len(spec.ModelIds)))

		answer, err := g.generateContent(ctx, modelId, prompt)
		if err == nil {
			zap.L().Info("Generation succeeded",
				zap.String("model_key", spec.Key),
				zap.String("effective_model_id", modelId))
			return &Result{
				Answer:           answer,
				ModelKey:         spec.Key,
				ModelName:        spec.Name,
				EffectiveModelId: modelId,
			}, nil
		}

		lastErr = err
		zap.L().Warn("Generation model failed",
			zap.String("model_id", modelId),
			zap.Error(err))

		// Context cancellation is not a model problem; stop immediately.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w for %s: %w", ErrAllModelsFailed, spec.Key, lastErr)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Generator) generateContent(ctx context.Context, modelId, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseUrl, modelId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if genResp.Error != nil {
			return "", fmt.Errorf("provider error %d: %s", genResp.Error.Code, genResp.Error.Message)
		}
		return "", fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("provider returned no candidates for %s", modelId)
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
