package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fastbot-go/internal/config"
	dex "fastbot-go/internal/dex/solana"
	"fastbot-go/internal/exchange"
	"fastbot-go/internal/execution"
	"fastbot-go/internal/metrics"
	"fastbot-go/internal/risk"
	"fastbot-go/internal/signal"
	"fastbot-go/internal/swap"
	"fastbot-go/internal/util"
	"fastbot-go/internal/webhook"
)

// shutdownMargin is added on top of the longest swap so in-flight webhook replies are delivered.
const shutdownMargin = 5 * time.Second

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Str("env", cfg.App.Env).Logger()

	key, err := privateKey(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet")
	}
	wallet, err := dex.NewWallet(key, cfg.Wallet.PublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet")
	}

	jupiter := dex.NewJupiterClient(
		cfg.Dex.RpcURL,
		cfg.Dex.JupiterBase,
		wallet.PrivateKey(),
		cfg.Dex.Commitment,
		dex.WithTimeout(cfg.Dex.Timeout()),
		dex.WithLogger(util.Component(log, "jupiter")),
		dex.WithInsecureSkipVerify(cfg.Dex.InsecureSkipVerify),
	)
	balances := dex.NewBalanceOracle(cfg.Dex.RpcURL, cfg.Dex.Commitment, util.Component(log, "balances"))

	orchestrator, err := swap.NewOrchestrator(wallet, balances, jupiter, jupiter,
		swap.WithTimeout(cfg.Dex.Timeout()),
		swap.WithExplorerURL(cfg.Dex.ExplorerURL),
		swap.WithLogger(util.Component(log, "swap")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("swap builder")
	}

	pairs := exchange.NewDexScreener(log,
		exchange.WithBaseURL(cfg.DexScreener.BaseURL),
		exchange.WithChain(cfg.DexScreener.DefaultChain),
		exchange.WithNativeMint(signal.AssetID(cfg.Dex.NativeMint)),
		exchange.WithRateLimit(cfg.DexScreener.RatePerMinute),
	)
	executor := execution.NewExecutor(orchestrator, pairs, signal.AssetID(cfg.Dex.NativeMint), util.Component(log, "executor")).
		WithLimits(risk.Limits{MaxBuy: decimal.NewFromFloat(cfg.Risk.MaxBuySol)})

	hooks := webhook.NewServer(cfg.Webhook.ListenAddr, webhook.NewHandler(executor, cfg.Webhook.SlippageBps(), log))
	servers := []*http.Server{hooks}
	if cfg.App.MetricsAddr != "" {
		servers = append(servers, metrics.NewServer(cfg.App.MetricsAddr))
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		group.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), orchestrator.MaxDuration()+shutdownMargin)
		defer done()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	log.Info().Str("owner", wallet.Address()).Str("jupiter", cfg.Dex.JupiterBase).Msg("fastbot started")
	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
		os.Exit(1)
	}
}

// privateKey prefers the environment (and .env) over the config file.
func privateKey(cfg *config.Config) (solana.PrivateKey, error) {
	key, err := dex.LoadPrivateKeyFromEnv()
	if err == nil {
		return key, nil
	}
	if cfg.Wallet.PrivateKey != "" {
		return dex.ParsePrivateKey(cfg.Wallet.PrivateKey)
	}
	return nil, err
}
