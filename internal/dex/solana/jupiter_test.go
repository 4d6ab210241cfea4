package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"fastbot-go/internal/swap"
)

func newTestClient(t *testing.T, base string, key solana.PrivateKey, opts ...Option) *JupiterClient {
	t.Helper()
	return NewJupiterClient("http://127.0.0.1:0", base, key, "confirmed", opts...)
}

func requireKind(t *testing.T, err error, kind swap.Kind, reason swap.Reason) {
	t.Helper()
	var se *swap.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *swap.Error, got %T: %v", err, err)
	}
	if se.Kind != kind || se.Reason != reason {
		t.Fatalf("expected %s/%s, got %s/%s (%v)", kind, reason, se.Kind, se.Reason, err)
	}
}

func TestNewJupiterClientCommit(t *testing.T) {
	wallet := solana.NewWallet()
	client := NewJupiterClient("https://rpc", "https://jup/", wallet.PrivateKey, "finalized")
	if client.Commit != rpc.CommitmentFinalized {
		t.Fatalf("expected finalized commitment, got %v", client.Commit)
	}
	if client.Base != "https://jup" {
		t.Fatalf("expected trailing slash trimmed, got %s", client.Base)
	}
	if ParseCommitment("bogus") != rpc.CommitmentConfirmed {
		t.Fatalf("expected confirmed fallback")
	}
}

func TestInsecureSkipVerifyIsOptIn(t *testing.T) {
	wallet := solana.NewWallet()
	client := newTestClient(t, "https://jup", wallet.PrivateKey)
	if client.Http.Transport != nil {
		t.Fatalf("expected default transport with verification on")
	}
	client = newTestClient(t, "https://jup", wallet.PrivateKey, WithInsecureSkipVerify(true))
	tr, ok := client.Http.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure transport when explicitly enabled")
	}
}

func TestGetQuote(t *testing.T) {
	wallet := solana.NewWallet()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != "AAA" || q.Get("outputMint") != "BBB" {
			t.Errorf("missing mint query: %s", r.URL.RawQuery)
		}
		if q.Get("amount") != "502500000" || q.Get("slippageBps") != "50" {
			t.Errorf("unexpected amount/slippage: %s", r.URL.RawQuery)
		}
		if q.Get("swapMode") != "ExactIn" {
			t.Errorf("expected ExactIn swap mode")
		}
		if q.Get("userPublicKey") != wallet.PublicKey().String() {
			t.Errorf("expected userPublicKey")
		}
		_, _ = w.Write([]byte(`{"data":[{"inputMint":"AAA","outputMint":"BBB","inAmount":"502500000","outAmount":"20","marketInfos":[]},{"inAmount":"502500000","outAmount":"99"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, wallet.PrivateKey, WithHTTPClient(server.Client()))

	quote, err := client.GetQuote(context.Background(), "AAA", "BBB", 502_500_000, 50)
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if quote.OutAmount() != "20" {
		t.Fatalf("expected first route (OutAmount 20), got %s", quote.OutAmount())
	}
}

func TestGetQuoteSingleRouteShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"inputMint":"AAA","outputMint":"BBB","inAmount":"10","outAmount":"20","swapMode":"ExactIn","slippageBps":50,"routePlan":[{"percent":100}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	quote, err := client.GetQuote(context.Background(), "AAA", "BBB", 10, 50)
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if quote.SwapMode() != "ExactIn" || quote.SlippageBps() != 50 {
		t.Fatalf("unexpected route metadata: %s %d", quote.SwapMode(), quote.SlippageBps())
	}
}

func TestGetQuoteEmptyRoute(t *testing.T) {
	for _, body := range []string{`{"data":[]}`, `{}`, `{"routePlan":[]}`, `{"data":[null]}`, `{"routePlan":[null]}`, `{"data":["route"]}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := newTestClient(t, server.URL, nil)
		_, err := client.GetQuote(context.Background(), "AAA", "BBB", 10, 50)
		server.Close()
		requireKind(t, err, swap.KindQuoteUnavailable, swap.ReasonEmptyRoute)
	}
}

func TestGetQuoteBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no liquidity", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.GetQuote(context.Background(), "AAA", "BBB", 10, 50)
	requireKind(t, err, swap.KindQuoteUnavailable, swap.ReasonBadStatus)
	if !strings.Contains(err.Error(), "no liquidity") {
		t.Fatalf("expected body echoed in error, got %v", err)
	}
}

func TestGetQuoteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server.URL, nil, WithTimeout(50*time.Millisecond))
	_, err := client.GetQuote(context.Background(), "AAA", "BBB", 10, 50)
	requireKind(t, err, swap.KindQuoteUnavailable, swap.ReasonTimeout)
}

func TestSubmitSendsQuoteVerbatim(t *testing.T) {
	const route = `{"inAmount":"10","outAmount":"20","routePlan":[{"percent":100}],"extra":{"nested":true}}`
	quote, err := swap.ParseQuote([]byte(route))
	if err != nil {
		t.Fatalf("ParseQuote returned error: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/swap" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			UserPublicKey     string          `json:"userPublicKey"`
			QuoteResponse     json.RawMessage `json:"quoteResponse"`
			WrapAndUnwrapSol  bool            `json:"wrapAndUnwrapSol"`
			UseSharedAccounts bool            `json:"useSharedAccounts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode swap request: %v", err)
		}
		if req.UserPublicKey != "OWNER" || !req.WrapAndUnwrapSol || !req.UseSharedAccounts {
			t.Errorf("unexpected swap request: %+v", req)
		}
		if string(req.QuoteResponse) != route {
			t.Errorf("quote was modified: %s", req.QuoteResponse)
		}
		_, _ = w.Write([]byte(`{"txid":"abc123"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	id, err := client.Submit(context.Background(), "OWNER", quote)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected txid abc123, got %s", id)
	}
}

func TestSubmitFailures(t *testing.T) {
	quote, _ := swap.ParseQuote([]byte(`{"routePlan":[{}]}`))
	cases := map[string]struct {
		handler http.HandlerFunc
		reason  swap.Reason
	}{
		"bad status": {
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) },
			reason:  swap.ReasonBadStatus,
		},
		"no txid": {
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"status":"ok"}`)) },
			reason:  swap.ReasonMalformedResponse,
		},
		"not json": {
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
			reason:  swap.ReasonMalformedResponse,
		},
		"bad transaction": {
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"swapTransaction":"!!!"}`)) },
			reason:  swap.ReasonMalformedResponse,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()
			client := newTestClient(t, server.URL, solana.NewWallet().PrivateKey)
			_, err := client.Submit(context.Background(), "OWNER", quote)
			requireKind(t, err, swap.KindSubmissionFailed, tc.reason)
		})
	}
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	quote, _ := swap.ParseQuote([]byte(`{"routePlan":[{}]}`))
	client := newTestClient(t, server.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Submit(ctx, "OWNER", quote)
	requireKind(t, err, swap.KindSubmissionFailed, swap.ReasonTimeout)
}

func TestSubmitSignsAndBroadcastsUnsignedTransaction(t *testing.T) {
	wallet := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, wallet.PublicKey(), solana.NewWallet().PublicKey()).Build()},
		solana.Hash{},
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	tx.Signatures = []solana.Signature{{}} // aggregator leaves a placeholder for the user signature
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary returned error: %v", err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("message MarshalBinary returned error: %v", err)
	}
	want, err := wallet.PrivateKey.Sign(msg)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	rpcSrv, rpcHTTP := newFakeRPC(t)
	rpcSrv.on("sendTransaction", `"`+want.String()+`"`)

	jup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"swapTransaction": base64.StdEncoding.EncodeToString(raw)})
	}))
	defer jup.Close()

	client := NewJupiterClient(rpcHTTP.URL, jup.URL, wallet.PrivateKey, "confirmed")
	quote, _ := swap.ParseQuote([]byte(`{"routePlan":[{}]}`))

	id, err := client.Submit(context.Background(), wallet.PublicKey().String(), quote)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != want.String() {
		t.Fatalf("expected signature %s, got %s", want, id)
	}
	if got := rpcSrv.count("sendTransaction"); got != 1 {
		t.Fatalf("expected one broadcast, got %d", got)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// one ASCII byte shifts every 3-byte rune off the cut boundary
	body := "x" + strings.Repeat("€", maxErrorBody)
	got := truncate([]byte(body))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated body is not valid utf-8")
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxErrorBody+3 {
		t.Fatalf("unexpected truncation length %d", len(got))
	}
	if short := truncate([]byte("  no liquidity ")); short != "no liquidity" {
		t.Fatalf("short bodies are only trimmed, got %q", short)
	}
}
