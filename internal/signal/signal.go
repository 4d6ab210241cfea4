// Package signal standardizes payloads shared between the webhook transport and the swap builder.
package signal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode enumerates the trade directions a signal can request.
type Mode string

const (
	// Buy spends native currency to acquire the target token.
	Buy Mode = "buy"
	// Sell converts a percentage of the held token back to native currency.
	Sell Mode = "sell"
)

// ParseMode normalizes a raw trade mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("invalid trade mode %q", raw)
}

// Valid reports whether the mode is one the builder knows how to execute.
func (m Mode) Valid() bool { return m == Buy || m == Sell }

// AssetID identifies a fungible asset by mint address.
type AssetID string

// NativeMint is the wrapped SOL mint the aggregator uses for the native currency.
const NativeMint AssetID = "So11111111111111111111111111111111111111112"

func (a AssetID) String() string { return string(a) }

// TradingSignal is a validated, immutable swap instruction.
// Amount is whole SOL for buys and a percentage (0-100) of the token balance for sells.
type TradingSignal struct {
	mode        Mode
	inputAsset  AssetID
	outputAsset AssetID
	amount      decimal.Decimal
	slippageBps int
}

// NewTradingSignal validates its arguments and returns a signal.
func NewTradingSignal(mode Mode, input, output AssetID, amount decimal.Decimal, slippageBps int) (TradingSignal, error) {
	if input == "" || output == "" {
		return TradingSignal{}, fmt.Errorf("input and output assets are required")
	}
	if input == output {
		return TradingSignal{}, fmt.Errorf("input and output assets must differ")
	}
	if amount.IsNegative() {
		return TradingSignal{}, fmt.Errorf("amount must be non-negative, got %s", amount)
	}
	if slippageBps < 0 {
		return TradingSignal{}, fmt.Errorf("slippage bps must be non-negative, got %d", slippageBps)
	}
	return TradingSignal{
		mode:        mode,
		inputAsset:  input,
		outputAsset: output,
		amount:      amount,
		slippageBps: slippageBps,
	}, nil
}

// ForToken builds a signal that swaps between the native asset and token, in the direction implied by mode.
func ForToken(mode Mode, native, token AssetID, amount decimal.Decimal, slippageBps int) (TradingSignal, error) {
	switch mode {
	case Buy:
		return NewTradingSignal(mode, native, token, amount, slippageBps)
	case Sell:
		return NewTradingSignal(mode, token, native, amount, slippageBps)
	}
	return TradingSignal{}, fmt.Errorf("invalid trade mode %q", mode)
}

func (s TradingSignal) Mode() Mode              { return s.mode }
func (s TradingSignal) InputAsset() AssetID     { return s.inputAsset }
func (s TradingSignal) OutputAsset() AssetID    { return s.outputAsset }
func (s TradingSignal) Amount() decimal.Decimal { return s.amount }
func (s TradingSignal) SlippageBps() int        { return s.slippageBps }

// SwapResult is the single externally visible outcome of a swap flow.
// Exactly one of the success fields or the error fields is populated.
type SwapResult struct {
	SettlementID string `json:"txid,omitempty"`
	ReferenceURL string `json:"transaction_url,omitempty"`
	ErrorKind    string `json:"kind,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Succeeded returns a success payload.
func Succeeded(settlementID, referenceURL string) SwapResult {
	return SwapResult{SettlementID: settlementID, ReferenceURL: referenceURL}
}

// Failed returns an error payload. An empty kind is recorded as "TransportError".
func Failed(kind, reason, message string) SwapResult {
	if kind == "" {
		kind = "TransportError"
	}
	return SwapResult{ErrorKind: kind, Reason: reason, Message: message}
}

// OK reports whether the result is a success payload.
func (r SwapResult) OK() bool { return r.ErrorKind == "" && r.SettlementID != "" }
