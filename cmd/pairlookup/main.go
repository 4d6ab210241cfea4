// Command pairlookup resolves a pair id or a pool account to token mints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"fastbot-go/internal/config"
	"fastbot-go/internal/exchange"
	"fastbot-go/internal/signal"
	"fastbot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	pair := flag.String("pair", "", "pair id, \"address\" or \"chain/address\"")
	pool := flag.String("pool", "", "liquidity pool account to read mints from")
	timeout := flag.Duration("timeout", 15*time.Second, "lookup timeout")
	flag.Parse()

	if (*pair == "") == (*pool == "") {
		fmt.Fprintln(os.Stderr, "usage: pairlookup -pair <id> | -pool <address>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLoggerTo(os.Stderr, cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *pool != "" {
		mintA, mintB, err := exchange.PoolMints(ctx, rpc.New(cfg.Dex.RpcURL), *pool)
		if err != nil {
			log.Fatal().Err(err).Str("pool", *pool).Msg("pool lookup")
		}
		fmt.Printf("mintA: %s\nmintB: %s\n", mintA, mintB)
		return
	}

	resolver := exchange.NewDexScreener(log,
		exchange.WithBaseURL(cfg.DexScreener.BaseURL),
		exchange.WithChain(cfg.DexScreener.DefaultChain),
		exchange.WithNativeMint(signal.AssetID(cfg.Dex.NativeMint)),
		exchange.WithRateLimit(cfg.DexScreener.RatePerMinute),
	)
	token, err := resolver.Resolve(ctx, *pair)
	if err != nil {
		log.Fatal().Err(err).Str("pair", *pair).Msg("pair lookup")
	}
	fmt.Println(token)
}
