// Package swap turns a trading signal into a single aggregator swap.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fastbot-go/internal/metrics"
	"fastbot-go/internal/signal"
)

// Credentials is the signing identity of the owning account.
type Credentials interface {
	// Address is the base58 public key of the owning account.
	Address() string
	// Validate checks the key material corresponds to Address.
	Validate() error
}

// BalanceOracle reads balances of the owning account from the ledger.
type BalanceOracle interface {
	NativeBalance(ctx context.Context, owner string) (uint64, error)
	TokenBalance(ctx context.Context, owner string, mint signal.AssetID) (uint64, error)
}

// RouteQuoter asks the aggregator for the best exact-input route.
type RouteQuoter interface {
	BestRoute(ctx context.Context, input, output signal.AssetID, amount uint64, slippageBps int) (*Quote, error)
}

// SwapSubmitter executes a quoted route and returns its settlement id.
type SwapSubmitter interface {
	Submit(ctx context.Context, owner string, quote *Quote) (string, error)
}

// Stage names a step of the swap flow.
type Stage string

const (
	StageValidatingInput Stage = "validating_input"
	StageResolvingAmount Stage = "resolving_amount"
	StageCheckingBalance Stage = "checking_balance"
	StageQuoting         Stage = "quoting"
	StageSubmitting      Stage = "submitting"
	StageDone            Stage = "done"
)

const (
	defaultTimeout     = 30 * time.Second
	DefaultExplorerURL = "https://explorer.solana.com/tx/%s?cluster=mainnet-beta"

	// a sell reads the token balance twice, then quotes and submits
	maxOutboundCalls = 4
)

// Orchestrator runs the validate, resolve, check, quote, submit sequence for one signal at a time.
// It holds no per-flow state and is safe for concurrent use.
type Orchestrator struct {
	wallet    Credentials
	balances  BalanceOracle
	quoter    RouteQuoter
	submitter SwapSubmitter
	timeout   time.Duration
	explorer  string
	log       zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds every outbound call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithExplorerURL sets the fmt template used to build reference links.
func WithExplorerURL(tmpl string) Option {
	return func(o *Orchestrator) {
		if tmpl != "" {
			o.explorer = tmpl
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator validates the credentials once and wires the collaborators.
func NewOrchestrator(wallet Credentials, balances BalanceOracle, quoter RouteQuoter, submitter SwapSubmitter, opts ...Option) (*Orchestrator, error) {
	if wallet == nil || balances == nil || quoter == nil || submitter == nil {
		return nil, NewError(KindConfiguration, "orchestrator requires wallet, balance oracle, quoter and submitter", nil)
	}
	if err := wallet.Validate(); err != nil {
		return nil, NewError(KindConfiguration, "invalid wallet", err)
	}
	o := &Orchestrator{
		wallet:    wallet,
		balances:  balances,
		quoter:    quoter,
		submitter: submitter,
		timeout:   defaultTimeout,
		explorer:  DefaultExplorerURL,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With().Str("component", "swap").Logger()
	return o, nil
}

// MaxDuration bounds how long one flow can run once started.
func (o *Orchestrator) MaxDuration() time.Duration {
	return maxOutboundCalls * o.timeout
}

// ReferenceURL formats the explorer link for a settlement id.
func (o *Orchestrator) ReferenceURL(settlementID string) string {
	return fmt.Sprintf(o.explorer, settlementID)
}

// Execute runs one flow and always returns exactly one of a success or an error payload.
func (o *Orchestrator) Execute(ctx context.Context, sig signal.TradingSignal) signal.SwapResult {
	log := o.log.With().
		Str("flow", uuid.NewString()).
		Str("mode", string(sig.Mode())).
		Str("input", sig.InputAsset().String()).
		Str("output", sig.OutputAsset().String()).
		Logger()

	id, stage, err := o.run(ctx, log, sig)
	if err != nil {
		kind := KindOf(err)
		metrics.SwapsTotal.WithLabelValues(string(sig.Mode()), string(kind)).Inc()
		ev := log.Warn()
		if IsFatal(err) {
			ev = log.Error()
		}
		ev.Err(err).Str("stage", string(stage)).Str("kind", string(kind)).Msg("swap failed")
		return Failure(err)
	}

	url := o.ReferenceURL(id)
	metrics.SwapsTotal.WithLabelValues(string(sig.Mode()), "success").Inc()
	log.Info().Str("txid", id).Str("url", url).Msg("swap submitted")
	return signal.Succeeded(id, url)
}

func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, sig signal.TradingSignal) (string, Stage, error) {
	owner := o.wallet.Address()

	stage, done := o.enter(log, StageValidatingInput)
	if err := o.wallet.Validate(); err != nil {
		done()
		return "", stage, NewError(KindConfiguration, "invalid wallet", err)
	}
	if !sig.Mode().Valid() {
		done()
		return "", stage, NewError(KindInvalidTradeMode, fmt.Sprintf("invalid trade mode %q", sig.Mode()), nil)
	}
	done()

	stage, done = o.enter(log, StageResolvingAmount)
	amount, err := o.resolveAmount(ctx, owner, sig)
	done()
	if err != nil {
		return "", stage, err
	}
	required, err := ApplySlippage(amount, sig.SlippageBps())
	if err != nil {
		return "", stage, err
	}
	log.Debug().Uint64("amount", amount).Uint64("required", required).Msg("amount resolved")

	stage, done = o.enter(log, StageCheckingBalance)
	balance, err := o.spendableBalance(ctx, owner, sig)
	done()
	if err != nil {
		return "", stage, err
	}
	log.Debug().Uint64("balance", balance).Msg("balance checked")
	if balance < required {
		return "", stage, NewError(KindInsufficientBalance,
			fmt.Sprintf("insufficient balance for the trade: have %d, need %d", balance, required), nil)
	}

	stage, done = o.enter(log, StageQuoting)
	quote, err := o.bestRoute(ctx, sig, required)
	done()
	if err != nil {
		return "", stage, err
	}
	log.Debug().Str("in_amount", quote.InAmount()).Str("out_amount", quote.OutAmount()).Msg("route selected")

	stage, done = o.enter(log, StageSubmitting)
	id, err := o.submit(ctx, owner, quote)
	done()
	if err != nil {
		return "", stage, err
	}
	return id, StageDone, nil
}

// enter logs a stage transition and returns a func that records its duration.
func (o *Orchestrator) enter(log zerolog.Logger, stage Stage) (Stage, func()) {
	log.Debug().Str("stage", string(stage)).Msg("enter stage")
	start := time.Now()
	return stage, func() {
		metrics.StageSeconds.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}
}

func (o *Orchestrator) resolveAmount(ctx context.Context, owner string, sig signal.TradingSignal) (uint64, error) {
	var amount uint64
	switch sig.Mode() {
	case signal.Buy:
		lamports, err := ToBaseUnits(sig.Amount())
		if err != nil {
			return 0, err
		}
		amount = lamports
	case signal.Sell:
		held, err := o.tokenBalance(ctx, owner, sig.InputAsset())
		if err != nil {
			return 0, err
		}
		share, err := PercentOf(held, sig.Amount())
		if err != nil {
			return 0, err
		}
		amount = share
	default:
		return 0, NewError(KindInvalidTradeMode, fmt.Sprintf("invalid trade mode %q", sig.Mode()), nil)
	}
	if amount == 0 {
		return 0, NewError(KindInvalidAmount, "resolved swap amount is zero", nil)
	}
	return amount, nil
}

func (o *Orchestrator) spendableBalance(ctx context.Context, owner string, sig signal.TradingSignal) (uint64, error) {
	if sig.Mode() == signal.Buy {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		bal, err := o.balances.NativeBalance(callCtx, owner)
		if err != nil {
			return 0, classify(err, KindBalanceUnavailable, "native balance unavailable")
		}
		return bal, nil
	}
	return o.tokenBalance(ctx, owner, sig.InputAsset())
}

func (o *Orchestrator) tokenBalance(ctx context.Context, owner string, mint signal.AssetID) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	bal, err := o.balances.TokenBalance(callCtx, owner, mint)
	if err != nil {
		return 0, classify(err, KindBalanceUnavailable, "token balance unavailable")
	}
	return bal, nil
}

func (o *Orchestrator) bestRoute(ctx context.Context, sig signal.TradingSignal, amount uint64) (*Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	quote, err := o.quoter.BestRoute(callCtx, sig.InputAsset(), sig.OutputAsset(), amount, sig.SlippageBps())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, classify(err, KindQuoteUnavailable, "request to aggregator timed out", ReasonTimeout)
		}
		return nil, classify(err, KindTransport, "quote request failed")
	}
	if quote == nil {
		return nil, QuoteError(ReasonEmptyRoute, "aggregator returned no route", nil)
	}
	return quote, nil
}

func (o *Orchestrator) submit(ctx context.Context, owner string, quote *Quote) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	id, err := o.submitter.Submit(callCtx, owner, quote)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", classify(err, KindSubmissionFailed, "request to aggregator timed out", ReasonTimeout)
		}
		return "", classify(err, KindTransport, "swap submission failed")
	}
	if id == "" {
		return "", SubmitError(ReasonMalformedResponse, "aggregator returned no settlement id", nil)
	}
	return id, nil
}

// classify keeps typed errors verbatim and wraps anything else as kind.
func classify(err error, kind Kind, message string, reason ...Reason) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	e := NewError(kind, message, err)
	if len(reason) > 0 {
		e.Reason = reason[0]
	}
	return e
}

// Failure renders err as an error payload, classifying unknown errors as transport failures.
func Failure(err error) signal.SwapResult {
	var se *Error
	if errors.As(err, &se) {
		return signal.Failed(string(se.Kind), string(se.Reason), se.Error())
	}
	return signal.Failed(string(KindTransport), "", err.Error())
}
