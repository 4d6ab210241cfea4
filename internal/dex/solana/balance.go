package solana

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"fastbot-go/internal/signal"
	"fastbot-go/internal/swap"
)

// ErrBalanceUnavailable marks a balance that could not be read, as opposed to a zero balance.
var ErrBalanceUnavailable = errors.New("balance unavailable")

var _ swap.BalanceOracle = (*BalanceOracle)(nil)

// BalanceOracle reads native and SPL token balances over JSON-RPC.
type BalanceOracle struct {
	rpc    *rpc.Client
	commit rpc.CommitmentType
	log    zerolog.Logger
}

// NewBalanceOracle builds an oracle with its own RPC connection pool.
func NewBalanceOracle(rpcURL, commit string, log zerolog.Logger) *BalanceOracle {
	return &BalanceOracle{
		rpc:    rpc.New(rpcURL),
		commit: ParseCommitment(commit),
		log:    log.With().Str("component", "balances").Logger(),
	}
}

// NativeBalance returns the lamports held by owner.
func (b *BalanceOracle) NativeBalance(ctx context.Context, owner string) (uint64, error) {
	pk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("%w: owner %q: %w", ErrBalanceUnavailable, owner, err)
	}
	out, err := b.rpc.GetBalance(ctx, pk, b.commit)
	if err != nil {
		b.log.Error().Err(err).Str("owner", owner).Msg("fetch native balance")
		return 0, fmt.Errorf("%w: get balance: %w", ErrBalanceUnavailable, err)
	}
	if out == nil {
		return 0, fmt.Errorf("%w: empty getBalance result", ErrBalanceUnavailable)
	}
	return out.Value, nil
}

// TokenBalance sums the raw amount across every token account owner holds for mint.
func (b *BalanceOracle) TokenBalance(ctx context.Context, owner string, mint signal.AssetID) (uint64, error) {
	pk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("%w: owner %q: %w", ErrBalanceUnavailable, owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint.String())
	if err != nil {
		return 0, fmt.Errorf("%w: mint %q: %w", ErrBalanceUnavailable, mint, err)
	}

	accounts, err := b.rpc.GetTokenAccountsByOwner(ctx, pk,
		&rpc.GetTokenAccountsConfig{Mint: mintKey.ToPointer()},
		&rpc.GetTokenAccountsOpts{Commitment: b.commit, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		b.log.Error().Err(err).Str("mint", mint.String()).Msg("fetch token accounts")
		return 0, fmt.Errorf("%w: get token accounts: %w", ErrBalanceUnavailable, err)
	}
	if accounts == nil {
		return 0, fmt.Errorf("%w: empty getTokenAccountsByOwner result", ErrBalanceUnavailable)
	}

	var total uint64
	for _, acct := range accounts.Value {
		if acct == nil {
			continue
		}
		amount, err := b.accountAmount(ctx, acct.Pubkey)
		if err != nil {
			b.log.Error().Err(err).Str("account", acct.Pubkey.String()).Msg("fetch token account balance")
			return 0, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
		}
		sum, carry := bits.Add64(total, amount, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: token balance overflows", ErrBalanceUnavailable)
		}
		total = sum
	}
	b.log.Debug().Str("mint", mint.String()).Int("accounts", len(accounts.Value)).Uint64("total", total).Msg("token balance")
	return total, nil
}

func (b *BalanceOracle) accountAmount(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := b.rpc.GetTokenAccountBalance(ctx, account, b.commit)
	if err != nil {
		return 0, fmt.Errorf("get token account balance %s: %w", account, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("empty balance for token account %s", account)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}
