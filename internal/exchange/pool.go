package exchange

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"

	"fastbot-go/internal/signal"
)

// AccountReader is the slice of the RPC client PoolMints needs.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// PoolMints reads a liquidity pool account whose data starts with the two token mints.
// Layout: mintA(32) | mintB(32) | ...
func PoolMints(ctx context.Context, client AccountReader, pool string) (signal.AssetID, signal.AssetID, error) {
	pk, err := solana.PublicKeyFromBase58(pool)
	if err != nil {
		return "", "", fmt.Errorf("parse pool address: %w", err)
	}
	info, err := client.GetAccountInfo(ctx, pk)
	if err != nil {
		return "", "", fmt.Errorf("get pool account: %w", err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return "", "", fmt.Errorf("pool account %s not found", pool)
	}
	return decodePoolMints(info.Value.Data.GetBinary())
}

func decodePoolMints(data []byte) (signal.AssetID, signal.AssetID, error) {
	if len(data) < 64 {
		return "", "", fmt.Errorf("pool account data too short: %d", len(data))
	}
	return signal.AssetID(base58.Encode(data[:32])), signal.AssetID(base58.Encode(data[32:64])), nil
}
