// Package exchange hosts market-data connectors used to turn pair identifiers into token mints.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fastbot-go/internal/metrics"
	"fastbot-go/internal/signal"
)

const (
	defaultDexScreenerBaseURL = "https://api.dexscreener.com"
	defaultChain              = "solana"
	// Dexscreener allows 300 pair requests per minute.
	defaultRatePerMinute = 300
)

// ErrPairNotFound is returned when Dexscreener has no data for a pair.
var ErrPairNotFound = errors.New("pair not found")

type dexscreenerPairsResponse struct {
	Pairs []Pair `json:"pairs"`
	Pair  *Pair  `json:"pair"`
}

// Pair is the subset of a Dexscreener pair the bot uses.
type Pair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   Token     `json:"baseToken"`
	QuoteToken  Token     `json:"quoteToken"`
	PriceUsd    string    `json:"priceUsd"`
	PriceNative string    `json:"priceNative"`
	Liquidity   Liquidity `json:"liquidity"`
}

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity is the pool depth reported by Dexscreener.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

func (r *dexscreenerPairsResponse) firstPair() (*Pair, bool) {
	if len(r.Pairs) > 0 {
		return &r.Pairs[0], true
	}
	if r.Pair != nil {
		return r.Pair, true
	}
	return nil, false
}

// DexScreener resolves pair addresses through the Dexscreener HTTP API.
type DexScreener struct {
	baseURL string
	chain   string
	native  signal.AssetID
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Option configures DexScreener construction parameters.
type Option func(*DexScreener)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(d *DexScreener) {
		if baseURL != "" {
			d.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithChain sets the chain used when a pair id carries none.
func WithChain(chain string) Option {
	return func(d *DexScreener) {
		if chain != "" {
			d.chain = strings.ToLower(strings.TrimSpace(chain))
		}
	}
}

// WithNativeMint sets the native asset skipped when picking the traded token.
func WithNativeMint(mint signal.AssetID) Option {
	return func(d *DexScreener) {
		if mint != "" {
			d.native = mint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DexScreener) {
		if c != nil {
			d.client = c
		}
	}
}

// WithRateLimit caps requests per minute; zero or less disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(d *DexScreener) {
		if perMinute <= 0 {
			d.limiter = nil
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
}

// NewDexScreener constructs a resolver.
func NewDexScreener(log zerolog.Logger, opts ...Option) *DexScreener {
	d := &DexScreener{
		baseURL: defaultDexScreenerBaseURL,
		chain:   defaultChain,
		native:  signal.NativeMint,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(float64(defaultRatePerMinute)/60.0), 1),
		log:     log.With().Str("component", "dexscreener").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve maps a pair id ("address" or "chain/address") to the traded token's mint.
// The traded token is the pair's base token unless that is the native asset.
func (d *DexScreener) Resolve(ctx context.Context, pairID string) (signal.AssetID, error) {
	chain, address, err := parsePairID(pairID, d.chain)
	if err != nil {
		metrics.PairLookupsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	pair, err := d.Pair(ctx, chain, address)
	if err != nil {
		metrics.PairLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	token := pair.BaseToken
	if signal.AssetID(token.Address) == d.native && pair.QuoteToken.Address != "" {
		token = pair.QuoteToken
	}
	if token.Address == "" {
		metrics.PairLookupsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("pair %s has no token address", address)
	}
	metrics.PairLookupsTotal.WithLabelValues("ok").Inc()
	d.log.Debug().Str("pair", address).Str("token", token.Address).Str("symbol", token.Symbol).Msg("pair resolved")
	return signal.AssetID(token.Address), nil
}

// Pair fetches the first pair Dexscreener returns for chain/address.
func (d *DexScreener) Pair(ctx context.Context, chain, address string) (*Pair, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", d.baseURL, chain, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "fastbot-go/1.0")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload dexscreenerPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	pair, ok := payload.firstPair()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, chain, address)
	}
	return pair, nil
}

func parsePairID(raw, defaultChain string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	chain := strings.ToLower(strings.TrimSpace(defaultChain))
	address := raw
	if parts := strings.SplitN(raw, "/", 2); len(parts) == 2 {
		if parts[0] != "" {
			chain = strings.ToLower(strings.TrimSpace(parts[0]))
		}
		address = parts[1]
	}
	address = strings.TrimSpace(address)
	if chain == "" || address == "" {
		return "", "", fmt.Errorf("pair id %q missing chain or address", raw)
	}
	return chain, address, nil
}
