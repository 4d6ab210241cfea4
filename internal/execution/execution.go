// Package execution turns inbound swap requests into trading signals and hands them to the swap builder.
package execution

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fastbot-go/internal/risk"
	"fastbot-go/internal/signal"
	"fastbot-go/internal/swap"
)

// Order is a swap request as received from a transport, before asset resolution.
// Exactly one of TokenAddress or PairID identifies the traded token.
type Order struct {
	TokenAddress string
	PairID       string
	Mode         string
	Amount       decimal.Decimal
	SlippageBps  int
}

// PairResolver maps a market pair id to the traded token's mint.
type PairResolver interface {
	Resolve(ctx context.Context, pairID string) (signal.AssetID, error)
}

// Runner executes a validated signal.
type Runner interface {
	Execute(ctx context.Context, sig signal.TradingSignal) signal.SwapResult
}

// Executor resolves orders into signals and runs them.
type Executor struct {
	runner Runner
	pairs  PairResolver
	native signal.AssetID
	limits risk.Limits
	log    zerolog.Logger
}

// NewExecutor wires a runner with an optional pair resolver. An empty native defaults to signal.NativeMint.
func NewExecutor(runner Runner, pairs PairResolver, native signal.AssetID, log zerolog.Logger) *Executor {
	if native == "" {
		native = signal.NativeMint
	}
	return &Executor{runner: runner, pairs: pairs, native: native, log: log}
}

// WithLimits installs per-signal spending caps.
func (executor *Executor) WithLimits(limits risk.Limits) *Executor {
	executor.limits = limits
	return executor
}

// Submit builds a signal from order and executes it. Failures before execution are
// reported with the same payload shape the swap builder uses.
func (executor *Executor) Submit(ctx context.Context, order Order) signal.SwapResult {
	sig, err := executor.Signal(ctx, order)
	if err != nil {
		executor.log.Warn().Err(err).Str("token", order.TokenAddress).Str("pair", order.PairID).Msg("order rejected")
		return swap.Failure(err)
	}
	executor.log.Debug().
		Str("mode", string(sig.Mode())).
		Str("input", sig.InputAsset().String()).
		Str("output", sig.OutputAsset().String()).
		Str("amount", sig.Amount().String()).
		Int("bps", sig.SlippageBps()).
		Msg("submit signal")
	return executor.runner.Execute(ctx, sig)
}

// Signal resolves the traded token and builds the trading signal for order.
func (executor *Executor) Signal(ctx context.Context, order Order) (signal.TradingSignal, error) {
	mode, err := signal.ParseMode(order.Mode)
	if err != nil {
		return signal.TradingSignal{}, swap.NewError(swap.KindInvalidTradeMode, "parse trade mode", err)
	}
	if mode == signal.Buy && !executor.limits.Allow(order.Amount) {
		return signal.TradingSignal{}, swap.NewError(swap.KindInvalidAmount,
			fmt.Sprintf("buy of %s exceeds per-trade cap %s", order.Amount, executor.limits.MaxBuy), nil)
	}
	token, err := executor.token(ctx, order)
	if err != nil {
		return signal.TradingSignal{}, err
	}
	if order.Amount.IsNegative() || order.SlippageBps < 0 {
		return signal.TradingSignal{}, swap.NewError(swap.KindInvalidAmount,
			fmt.Sprintf("amount %s and slippage %d bps must not be negative", order.Amount, order.SlippageBps), nil)
	}
	sig, err := signal.ForToken(mode, executor.native, token, order.Amount, order.SlippageBps)
	if err != nil {
		return signal.TradingSignal{}, swap.NewError(swap.KindInvalidRequest, "build signal", err)
	}
	return sig, nil
}

func (executor *Executor) token(ctx context.Context, order Order) (signal.AssetID, error) {
	token := strings.TrimSpace(order.TokenAddress)
	pair := strings.TrimSpace(order.PairID)
	switch {
	case token != "" && pair != "":
		return "", swap.NewError(swap.KindInvalidRequest, "set either token_address or pair_id, not both", nil)
	case token != "":
		return signal.AssetID(token), nil
	case pair == "":
		return "", swap.NewError(swap.KindInvalidRequest, "token_address or pair_id is required", nil)
	case executor.pairs == nil:
		return "", swap.NewError(swap.KindConfiguration, "pair lookup is not configured", nil)
	}
	id, err := executor.pairs.Resolve(ctx, pair)
	if err != nil {
		return "", swap.NewError(swap.KindTransport, fmt.Sprintf("pair lookup %s", pair), err)
	}
	return id, nil
}
