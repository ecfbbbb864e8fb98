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

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"insight-oracle-go/internal/chain"
	"insight-oracle-go/internal/insight"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"
	"insight-oracle-go/internal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// handleQuote prices a query and tells the client where to send the payment.
func (s *Server) handleQuote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "query must not be empty"})
		return
	}

	discount := false
	if req.Address != "" {
		referred, err := s.ledger.HasReferralDiscount(c.Request.Context(), req.Address)
		if err != nil {
			zap.L().Warn("Failed to check referral discount, quoting full price",
				zap.String("address", req.Address),
				zap.Error(err))
		} else {
			discount = referred
		}
	}

	charge := s.calculator.Quote(req.Query, req.Category, discount)

	c.JSON(http.StatusOK, models.QuoteResponse{
		Amount:    charge.FinalAmount,
		Currency:  "USDC",
		Recipient: s.chainCfg.RecipientAddress,
		PaymentId: uuid.New().String(),
		ExpiresAt: time.Now().UTC().Add(s.quoteTtl),
		Query:     req.Query,
		Category:  req.Category,
	})
}

// handleOracle delivers a paid insight. The client has already submitted the
// transfer from its own wallet; this handler waits for the transaction to
// confirm, generates the answer, and settles rewards.
func (s *Server) handleOracle(c *gin.Context) {
	var req models.OracleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.Address == "" || req.TransactionId == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "query, address and transaction_id are required"})
		return
	}

	ctx := c.Request.Context()

	status, err := s.watcher.Await(ctx, req.TransactionId)
	if err != nil {
		switch {
		case errors.Is(err, watcher.ErrAlreadyHandled):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "transaction already redeemed", Details: req.TransactionId})
		case errors.Is(err, watcher.ErrConfirmTimeout):
			c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{Error: "timed out waiting for payment confirmation", Details: req.TransactionId})
		default:
			c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to confirm payment", Details: err.Error()})
		}
		return
	}
	if status != chain.StatusSucceeded {
		c.JSON(http.StatusPaymentRequired, models.ErrorResponse{Error: "payment failed on chain", Details: req.TransactionId})
		return
	}

	discount, err := s.ledger.HasReferralDiscount(ctx, req.Address)
	if err != nil {
		discount = false
	}
	charge := s.calculator.Quote(req.Query, req.Category, discount)

	result, err := s.generator.Generate(ctx, req.Query, req.Category, req.Model)
	if err != nil {
		zap.L().Error("Generation failed after confirmed payment",
			zap.String("transaction_id", req.TransactionId),
			zap.Error(err))
		if errors.Is(err, insight.ErrAllModelsFailed) {
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "failed to generate insight, contact support with your transaction id",
				Details: req.TransactionId,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate insight", Details: err.Error()})
		return
	}

	delivered := models.Insight{
		Id:            uuid.New().String(),
		Address:       req.Address,
		Query:         req.Query,
		Category:      req.Category,
		Model:         result.EffectiveModelId,
		Answer:        result.Answer,
		Cost:          charge.FinalAmount,
		TransactionId: req.TransactionId,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.ledger.SettleInsight(ctx, delivered); err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "transaction already redeemed", Details: req.TransactionId})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to record insight", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.OracleResponse{
		Insight:   result.Answer,
		Model:     result.ModelName,
		ModelId:   result.EffectiveModelId,
		Price:     charge.FinalAmount,
		Category:  req.Category,
		Timestamp: delivered.CreatedAt,
	})
}

// handleModels lists the selectable generation models.
func (s *Server) handleModels(c *gin.Context) {
	specs := s.generator.Catalog().List()

	type modelEntry struct {
		Key      string   `json:"key"`
		Name     string   `json:"name"`
		Price    string   `json:"price"`
		ModelIds []string `json:"model_ids"`
	}

	entries := make([]modelEntry, 0, len(specs))
	for _, spec := range specs {
		entries = append(entries, modelEntry{
			Key:      spec.Key,
			Name:     spec.Name,
			Price:    spec.Price,
			ModelIds: spec.ModelIds,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"default": s.generator.Catalog().DefaultKey(),
		"models":  entries,
	})
}

func (s *Server) handleGetRewards(c *gin.Context) {
	account, err := s.ledger.GetOrCreate(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load reward account", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleResetRewards(c *gin.Context) {
	err := s.ledger.Reset(c.Request.Context(), c.Param("address"))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to reset account", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// handleReferral links a visiting address to a referrer's code. The first
// recorded code wins; repeats are accepted silently.
func (s *Server) handleReferral(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Code    string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "address and code are required"})
		return
	}

	ctx := c.Request.Context()
	code := strings.ToUpper(req.Code)

	referrer, err := s.ledger.AccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrUnknownReferralCode) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "unknown referral code"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to resolve referral code", Details: err.Error()})
		return
	}
	if strings.EqualFold(referrer.Address, req.Address) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "cannot use your own referral code"})
		return
	}

	if err := s.ledger.RecordReferral(ctx, req.Address, code); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to record referral", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (s *Server) handleListInsights(c *gin.Context) {
	limit := queryInt(c, "limit", defaultHistoryLimit)
	offset := queryInt(c, "offset", 0)

	insights, err := s.ledger.History(c.Request.Context(), c.Param("address"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load insights", Details: err.Error()})
		return
	}
	if insights == nil {
		insights = []models.Insight{}
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights})
}

func (s *Server) handleClearInsights(c *gin.Context) {
	if err := s.ledger.ClearHistory(c.Request.Context(), c.Param("address")); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to clear insights", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
