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

package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"insight-oracle-go/internal/chain"
	"insight-oracle-go/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyHandled means a terminal outcome for this transaction id was
	// delivered before. Callers must treat it as "do nothing": the downstream
	// step has already run exactly once.
	ErrAlreadyHandled = errors.New("transaction outcome already handled")

	// ErrConfirmTimeout means we stopped waiting locally. The on-chain
	// transfer is NOT retracted; it may still confirm later.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// Watcher polls the chain until a submitted transaction reaches a terminal
// state and guarantees the outcome is delivered at most once per transaction
// id, even if the underlying observation emits duplicate notifications.
type Watcher struct {
	client         chain.StatusReader
	pollInterval   time.Duration
	confirmTimeout time.Duration

	// State management for handled transactions
	handledTxIds  map[string]time.Time
	mutex         sync.RWMutex
	cleanupWindow time.Duration
}

func New(client chain.StatusReader, cfg models.WatcherConfig) *Watcher {
	return &Watcher{
		client:         client,
		pollInterval:   cfg.PollInterval,
		confirmTimeout: cfg.ConfirmTimeout,
		handledTxIds:   make(map[string]time.Time),
		cleanupWindow:  cfg.CleanupWindow,
	}
}

// Await blocks until the transaction reaches a terminal state, then claims the
// outcome for the caller. Exactly one Await per transaction id returns a
// terminal status; any other delivery of the same outcome gets
// ErrAlreadyHandled. Cancelling ctx abandons the wait only -- nothing on chain
// is cancelled.
func (w *Watcher) Await(ctx context.Context, txId string) (chain.Status, error) {
	if w.isHandled(txId) {
		return "", fmt.Errorf("%w: %s", ErrAlreadyHandled, txId)
	}

	deadline := time.Now().Add(w.confirmTimeout)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	zap.L().Info("Waiting for transaction confirmation",
		zap.String("transaction_id", txId),
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("timeout", w.confirmTimeout))

	for {
		status, err := w.client.TransactionStatus(ctx, txId)
		if err != nil {
			// Transient RPC errors are retried on the next tick.
			zap.L().Warn("Failed to poll transaction status",
				zap.String("transaction_id", txId),
				zap.Error(err))
		} else if status.Terminal() {
			if !w.markHandled(txId) {
				return "", fmt.Errorf("%w: %s", ErrAlreadyHandled, txId)
			}
			zap.L().Info("Transaction reached terminal state",
				zap.String("transaction_id", txId),
				zap.String("status", string(status)))
			return status, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w after %s: %s", ErrConfirmTimeout, w.confirmTimeout, txId)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// isHandled checks whether we already delivered an outcome for this transaction
func (w *Watcher) isHandled(txId string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	_, exists := w.handledTxIds[txId]
	return exists
}

// markHandled claims the outcome delivery. Returns false if another delivery
// claimed it first.
func (w *Watcher) markHandled(txId string) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, exists := w.handledTxIds[txId]; exists {
		return false
	}
	w.handledTxIds[txId] = time.Now()
	return true
}

// CleanupHandled removes entries older than the cleanup window so the handled
// set does not grow without bound in long-running processes.
func (w *Watcher) CleanupHandled() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	cutoff := time.Now().UTC().Add(-w.cleanupWindow)
	cleaned := 0

	for txId, handledTime := range w.handledTxIds {
		if handledTime.Before(cutoff) {
			delete(w.handledTxIds, txId)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up old handled transactions",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(w.handledTxIds)))
	}
}
