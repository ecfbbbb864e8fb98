package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Signing failure kinds. The UI presents different guidance for a user who
// rejected the prompt than for a transfer the network refused, so the
// submitter must keep them apart. No funds move on any of these.
var (
	ErrUserCancelled     = errors.New("user cancelled signing")
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrSubmissionFailed  = errors.New("transfer submission failed")
)

// TransferSigner is the external wallet-signing capability. SubmitTransfer
// blocks until the user approves or rejects in their wallet, which is
// human-paced: seconds to minutes, unbounded from our side. Implementations
// must honor ctx cancellation while waiting.
type TransferSigner interface {
	SubmitTransfer(ctx context.Context, recipient string, amountUnits int64) (txId string, err error)
}

// Quantize converts a display-currency amount to the token's native integer
// units (e.g. 0.08 USDC with 6 decimals -> 80000). The fractional remainder
// below native precision is truncated.
func Quantize(amount decimal.Decimal, tokenDecimals int32) int64 {
	return amount.Shift(tokenDecimals).Floor().IntPart()
}

// ClassifySigningError maps raw wallet/RPC error text onto the sentinel kinds.
// Wallet providers disagree on wording; these substrings cover the common ones.
func ClassifySigningError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"), strings.Contains(msg, "cancelled"):
		return errors.Join(ErrUserCancelled, err)
	case strings.Contains(msg, "insufficient"):
		return errors.Join(ErrInsufficientFunds, err)
	default:
		return errors.Join(ErrSubmissionFailed, err)
	}
}
