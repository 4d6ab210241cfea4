package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fastbot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== FastBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit endpoints and timeouts")
		fmt.Println("3) Edit webhook and pair lookup")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch webhook bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editDex(reader, cfg)
		case "3":
			editWebhook(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved, config invalid: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("RPC: %s (%s)\n", cfg.Dex.RpcURL, cfg.Dex.Commitment)
	fmt.Printf("Jupiter: %s\n", cfg.Dex.JupiterBase)
	fmt.Printf("Outbound timeout: %s\n", cfg.Dex.Timeout())
	if cfg.Dex.InsecureSkipVerify {
		fmt.Println("TLS verification: DISABLED")
	}
	owner := cfg.Wallet.PublicKey
	if owner == "" {
		owner = "(derived from private key)"
	}
	fmt.Printf("Wallet: %s\n", owner)
	fmt.Printf("Webhook: %s | default slippage %d bps\n", cfg.Webhook.ListenAddr, cfg.Webhook.SlippageBps())
	fmt.Printf("Dexscreener: %s chain=%s limit=%d/min\n", cfg.DexScreener.BaseURL, cfg.DexScreener.DefaultChain, cfg.DexScreener.RatePerMinute)
	fmt.Printf("Max buy per signal: %.4f SOL (0 = unlimited)\n", cfg.Risk.MaxBuySol)
	fmt.Printf("Metrics: %s\n", cfg.App.MetricsAddr)
}

func editDex(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Endpoints ---")
	cfg.Dex.RpcURL = promptString(reader, "Solana RPC URL", cfg.Dex.RpcURL)
	cfg.Dex.Commitment = promptString(reader, "Commitment (processed|confirmed|finalized)", cfg.Dex.Commitment)
	cfg.Dex.JupiterBase = promptString(reader, "Jupiter base URL", cfg.Dex.JupiterBase)
	cfg.Dex.TimeoutSeconds = promptInt(reader, "Outbound timeout (seconds)", cfg.Dex.TimeoutSeconds)
	cfg.Wallet.PublicKey = promptString(reader, "Wallet public key", cfg.Wallet.PublicKey)
}

func editWebhook(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Webhook ---")
	cfg.Webhook.ListenAddr = promptString(reader, "Listen address", cfg.Webhook.ListenAddr)
	bps := promptInt(reader, "Default slippage (bps)", cfg.Webhook.SlippageBps())
	cfg.Webhook.DefaultSlippage = &bps
	cfg.DexScreener.DefaultChain = promptString(reader, "Default pair chain", cfg.DexScreener.DefaultChain)
	cfg.DexScreener.RatePerMinute = promptInt(reader, "Dexscreener requests per minute", cfg.DexScreener.RatePerMinute)
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching webhook bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/fastbot", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptInt(reader *bufio.Reader, label string, current int) int {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.Atoi(line)
	if err != nil {
		fmt.Printf("invalid number, keeping %d\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if path := os.Getenv("FASTBOT_CONFIG"); path != "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(defaultConfigPath)
}
