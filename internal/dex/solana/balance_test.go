package solana

import (
	"context"
	"errors"
	"fmt"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"fastbot-go/internal/signal"
)

func tokenAccountJSON(pubkey solana.PublicKey) string {
	return fmt.Sprintf(`{"pubkey":%q,"account":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":["","base64"],"executable":false,"rentEpoch":0}}`, pubkey.String())
}

func uiAmountJSON(amount string) string {
	return fmt.Sprintf(`{"context":{"slot":1},"value":{"amount":%q,"decimals":6,"uiAmountString":"0"}}`, amount)
}

func TestNativeBalance(t *testing.T) {
	rpcSrv, srv := newFakeRPC(t)
	rpcSrv.on("getBalance", `{"context":{"slot":1},"value":1500000000}`)

	oracle := NewBalanceOracle(srv.URL, "confirmed", zerolog.Nop())
	owner := solana.NewWallet().PublicKey().String()

	bal, err := oracle.NativeBalance(context.Background(), owner)
	if err != nil {
		t.Fatalf("NativeBalance returned error: %v", err)
	}
	if bal != 1_500_000_000 {
		t.Fatalf("expected 1500000000 lamports, got %d", bal)
	}
}

func TestTokenBalanceAggregatesAccounts(t *testing.T) {
	rpcSrv, srv := newFakeRPC(t)
	a1 := solana.NewWallet().PublicKey()
	a2 := solana.NewWallet().PublicKey()
	rpcSrv.on("getTokenAccountsByOwner", fmt.Sprintf(`{"context":{"slot":1},"value":[%s,%s]}`, tokenAccountJSON(a1), tokenAccountJSON(a2)))
	rpcSrv.on("getTokenAccountBalance", uiAmountJSON("600000"), uiAmountJSON("400000"))

	oracle := NewBalanceOracle(srv.URL, "processed", zerolog.Nop())
	owner := solana.NewWallet().PublicKey().String()
	mint := signal.AssetID(solana.NewWallet().PublicKey().String())

	bal, err := oracle.TokenBalance(context.Background(), owner, mint)
	if err != nil {
		t.Fatalf("TokenBalance returned error: %v", err)
	}
	if bal != 1_000_000 {
		t.Fatalf("expected aggregated 1000000, got %d", bal)
	}
	if got := rpcSrv.count("getTokenAccountBalance"); got != 2 {
		t.Fatalf("expected 2 per-account lookups, got %d", got)
	}
}

func TestTokenBalanceNoAccountsIsZero(t *testing.T) {
	rpcSrv, srv := newFakeRPC(t)
	rpcSrv.on("getTokenAccountsByOwner", `{"context":{"slot":1},"value":[]}`)

	oracle := NewBalanceOracle(srv.URL, "", zerolog.Nop())
	bal, err := oracle.TokenBalance(context.Background(), solana.NewWallet().PublicKey().String(), signal.AssetID(solana.NewWallet().PublicKey().String()))
	if err != nil {
		t.Fatalf("TokenBalance returned error: %v", err)
	}
	if bal != 0 {
		t.Fatalf("expected zero balance, got %d", bal)
	}
}

func TestBalanceFailuresAreNotZero(t *testing.T) {
	_, srv := newFakeRPC(t) // no methods configured: every call errors

	oracle := NewBalanceOracle(srv.URL, "", zerolog.Nop())
	owner := solana.NewWallet().PublicKey().String()

	if _, err := oracle.NativeBalance(context.Background(), owner); !errors.Is(err, ErrBalanceUnavailable) {
		t.Fatalf("expected ErrBalanceUnavailable, got %v", err)
	}
	if _, err := oracle.TokenBalance(context.Background(), owner, signal.NativeMint); !errors.Is(err, ErrBalanceUnavailable) {
		t.Fatalf("expected ErrBalanceUnavailable, got %v", err)
	}
	if _, err := oracle.NativeBalance(context.Background(), "not-a-key"); !errors.Is(err, ErrBalanceUnavailable) {
		t.Fatalf("expected ErrBalanceUnavailable for bad owner, got %v", err)
	}
}

func TestTokenBalanceBadAmount(t *testing.T) {
	rpcSrv, srv := newFakeRPC(t)
	rpcSrv.on("getTokenAccountsByOwner", fmt.Sprintf(`{"context":{"slot":1},"value":[%s]}`, tokenAccountJSON(solana.NewWallet().PublicKey())))
	rpcSrv.on("getTokenAccountBalance", uiAmountJSON("lots"))

	oracle := NewBalanceOracle(srv.URL, "", zerolog.Nop())
	_, err := oracle.TokenBalance(context.Background(), solana.NewWallet().PublicKey().String(), signal.NativeMint)
	if !errors.Is(err, ErrBalanceUnavailable) {
		t.Fatalf("expected ErrBalanceUnavailable, got %v", err)
	}
}
