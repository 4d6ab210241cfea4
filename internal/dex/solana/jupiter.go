package solana

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"fastbot-go/internal/signal"
	"fastbot-go/internal/swap"
)

// DefaultTimeout bounds every aggregator call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is echoed into error messages.
const maxErrorBody = 2048

var (
	_ swap.RouteQuoter   = (*JupiterClient)(nil)
	_ swap.SwapSubmitter = (*JupiterClient)(nil)
)

// JupiterClient quotes and executes swaps against the Jupiter aggregator.
type JupiterClient struct {
	Base   string
	RPC    *rpc.Client
	Owner  solana.PrivateKey
	Commit rpc.CommitmentType
	Http   *http.Client
	log    zerolog.Logger

	insecure bool
}

// Option configures a JupiterClient.
type Option func(*JupiterClient)

// WithHTTPClient replaces the aggregator HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(j *JupiterClient) {
		if c != nil {
			j.Http = c
		}
	}
}

// WithTimeout sets the aggregator HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(j *JupiterClient) {
		if d > 0 {
			j.Http.Timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(j *JupiterClient) { j.log = log }
}

// WithInsecureSkipVerify disables TLS certificate checks for aggregator calls. Debug only.
func WithInsecureSkipVerify(skip bool) Option {
	return func(j *JupiterClient) { j.insecure = skip }
}

// ParseCommitment maps a config string to an RPC commitment, defaulting to confirmed.
func ParseCommitment(commit string) rpc.CommitmentType {
	switch strings.ToLower(commit) {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	}
	return rpc.CommitmentConfirmed
}

// NewJupiterClient builds a client with its own connection pool.
// owner signs transactions the aggregator returns unsigned; it may be nil when the aggregator submits on its own.
func NewJupiterClient(rpcURL, base string, owner solana.PrivateKey, commit string, opts ...Option) *JupiterClient {
	j := &JupiterClient{
		Base:   strings.TrimSuffix(base, "/"),
		RPC:    rpc.New(rpcURL),
		Owner:  owner,
		Commit: ParseCommitment(commit),
		Http:   &http.Client{Timeout: DefaultTimeout},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.With().Str("component", "jupiter").Logger()
	if j.insecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in debug override
		j.Http.Transport = tr
		j.log.Warn().Str("base", j.Base).Msg("TLS certificate verification DISABLED for aggregator calls")
	}
	return j
}

// BestRoute implements swap.RouteQuoter.
func (j *JupiterClient) BestRoute(ctx context.Context, input, output signal.AssetID, amount uint64, slippageBps int) (*swap.Quote, error) {
	return j.GetQuote(ctx, input.String(), output.String(), amount, slippageBps)
}

// GetQuote fetches exact-input routes and returns the first (best) one.
// amount is in smallest units (lamports for SOL; token decimals apply).
func (j *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))
	if j.Owner != nil {
		q.Set("userPublicKey", j.Owner.PublicKey().String())
	}
	q.Set("swapMode", "ExactIn")
	u := j.Base + "/quote?" + q.Encode()

	j.log.Debug().Str("url", u).Msg("fetching best route")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, swap.NewError(swap.KindTransport, "create quote request", err)
	}
	resp, err := j.Http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, swap.QuoteError(swap.ReasonTimeout, "request to aggregator timed out", err)
		}
		return nil, swap.NewError(swap.KindTransport, "quote request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, swap.QuoteError(swap.ReasonTimeout, "request to aggregator timed out", err)
		}
		return nil, swap.NewError(swap.KindTransport, "read quote response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, swap.QuoteError(swap.ReasonBadStatus,
			fmt.Sprintf("non-200 response: %d %s", resp.StatusCode, truncate(body)), nil)
	}

	var payload struct {
		Data      []json.RawMessage `json:"data"`
		RoutePlan []json.RawMessage `json:"routePlan"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, swap.NewError(swap.KindTransport, "decode quote response", err)
	}

	var route []byte
	switch {
	case len(payload.Data) > 0:
		route = payload.Data[0]
	case hasRoute(payload.RoutePlan):
		route = body
	default:
		return nil, swap.QuoteError(swap.ReasonEmptyRoute, "invalid response data from aggregator: no route", nil)
	}
	quote, err := swap.ParseQuote(route)
	if err != nil {
		return nil, swap.QuoteError(swap.ReasonEmptyRoute, "invalid route from aggregator", err)
	}
	j.log.Debug().Str("in", quote.InAmount()).Str("out", quote.OutAmount()).Msg("best route")
	return quote, nil
}

type swapRequest struct {
	UserPublicKey     string      `json:"userPublicKey"`
	QuoteResponse     *swap.Quote `json:"quoteResponse"`
	WrapAndUnwrapSol  bool        `json:"wrapAndUnwrapSol"`
	UseSharedAccounts bool        `json:"useSharedAccounts"`
}

type swapResponse struct {
	TxID            string `json:"txid"`
	SwapTransaction string `json:"swapTransaction"` // base64-encoded tx (unsigned)
}

// Submit implements swap.SwapSubmitter. The settlement id is the aggregator's txid,
// or the signature of the returned transaction after it is signed and broadcast.
func (j *JupiterClient) Submit(ctx context.Context, owner string, quote *swap.Quote) (string, error) {
	body, err := json.Marshal(swapRequest{
		UserPublicKey:     owner,
		QuoteResponse:     quote,
		WrapAndUnwrapSol:  true,
		UseSharedAccounts: true,
	})
	if err != nil {
		return "", swap.NewError(swap.KindTransport, "encode swap request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Base+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", swap.NewError(swap.KindTransport, "create swap request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := j.Http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", swap.SubmitError(swap.ReasonTimeout, "request to aggregator timed out", err)
		}
		return "", swap.NewError(swap.KindTransport, "swap request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", swap.SubmitError(swap.ReasonTimeout, "request to aggregator timed out", err)
		}
		return "", swap.NewError(swap.KindTransport, "read swap response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", swap.SubmitError(swap.ReasonBadStatus,
			fmt.Sprintf("non-200 response: %d %s", resp.StatusCode, truncate(raw)), nil)
	}

	var sr swapResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", swap.SubmitError(swap.ReasonMalformedResponse, "invalid response data from aggregator", err)
	}
	switch {
	case sr.TxID != "":
		return sr.TxID, nil
	case sr.SwapTransaction != "":
		sig, err := j.signAndSend(ctx, sr.SwapTransaction)
		if err != nil {
			return "", err
		}
		return sig.String(), nil
	}
	return "", swap.SubmitError(swap.ReasonMalformedResponse, "invalid response data from aggregator: no txid", nil)
}

// signAndSend signs the aggregator-built transaction locally, then submits it via RPC.
func (j *JupiterClient) signAndSend(ctx context.Context, encoded string) (sig solana.Signature, err error) {
	if j.Owner == nil {
		return sig, swap.SubmitError(swap.ReasonMalformedResponse, "aggregator returned an unsigned transaction and no signing key is configured", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return sig, swap.SubmitError(swap.ReasonMalformedResponse, "decode tx", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return sig, swap.SubmitError(swap.ReasonMalformedResponse, "unmarshal tx", err)
	}

	tx.Signatures = nil
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(j.Owner.PublicKey()) {
			return &j.Owner
		}
		return nil
	})
	if err != nil {
		return sig, swap.SubmitError(swap.ReasonMalformedResponse, "sign tx", err)
	}

	sig, err = j.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: j.Commit,
	})
	if err != nil {
		if isTimeout(err) {
			return sig, swap.SubmitError(swap.ReasonTimeout, "send transaction timed out", err)
		}
		return sig, swap.NewError(swap.KindTransport, "send transaction", err)
	}
	j.log.Info().Str("sig", sig.String()).Msg("signed swap broadcast")
	return sig, nil
}

// hasRoute reports whether plan holds at least one step and no null steps.
func hasRoute(plan []json.RawMessage) bool {
	if len(plan) == 0 {
		return false
	}
	for _, step := range plan {
		if trimmed := bytes.TrimSpace(step); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return false
		}
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
