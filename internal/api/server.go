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

// Package api exposes the oracle over HTTP for browser-wallet clients. The
// client pays from its own wallet: it fetches a quote, submits the transfer
// itself, then posts the transaction id to the oracle endpoint. The server
// never holds keys.
package api

import (
	"net/http"
	"time"

	"insight-oracle-go/internal/insight"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/pricing"
	"insight-oracle-go/internal/rewards"
	"insight-oracle-go/internal/watcher"

	"github.com/gin-gonic/gin"
)

type Server struct {
	calculator *pricing.Calculator
	ledger     *rewards.Ledger
	watcher    *watcher.Watcher
	generator  *insight.Generator
	chainCfg   models.ChainConfig
	quoteTtl   time.Duration
	engine     *gin.Engine
}

func NewServer(
	calculator *pricing.Calculator,
	ledger *rewards.Ledger,
	w *watcher.Watcher,
	generator *insight.Generator,
	cfg *models.Config,
) *Server {
	s := &Server{
		calculator: calculator,
		ledger:     ledger,
		watcher:    w,
		generator:  generator,
		chainCfg:   cfg.Chain,
		quoteTtl:   cfg.Pricing.QuoteTtl,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.handleHealth)

	apiGroup := engine.Group("/api")
	{
		apiGroup.POST("/insight/quote", s.handleQuote)
		apiGroup.POST("/oracle", s.handleOracle)
		apiGroup.GET("/models", s.handleModels)
		apiGroup.GET("/rewards/:address", s.handleGetRewards)
		apiGroup.POST("/rewards/:address/reset", s.handleResetRewards)
		apiGroup.POST("/rewards/referral", s.handleReferral)
		apiGroup.GET("/insights/:address", s.handleListInsights)
		apiGroup.DELETE("/insights/:address", s.handleClearInsights)
	}

	s.engine = engine
	return s
}

// Handler returns the http.Handler for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
