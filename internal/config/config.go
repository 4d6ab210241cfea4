// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultJupiterBase    = "https://quote-api.jup.ag/v6"
	DefaultRPCURL         = "https://api.mainnet-beta.solana.com"
	DefaultNativeMint     = "So11111111111111111111111111111111111111112"
	DefaultExplorerURL    = "https://explorer.solana.com/tx/%s?cluster=mainnet-beta"
	DefaultSlippageBps    = 50
	DefaultTimeoutSeconds = 30
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Dex defines network endpoints and defaults for swap execution.
type Dex struct {
	RpcURL             string `yaml:"rpc_url"`
	Commitment         string `yaml:"commitment"`   // processed|confirmed|finalized
	JupiterBase        string `yaml:"jupiter_base"` // https://quote-api.jup.ag/v6
	NativeMint         string `yaml:"native_mint"`
	ExplorerURL        string `yaml:"explorer_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Timeout returns the per-call deadline for outbound requests.
func (d Dex) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Wallet stores the account address and env-backed signing material.
type Wallet struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key,omitempty"`
}

// DexScreener configures pair id lookups.
type DexScreener struct {
	BaseURL       string `yaml:"base_url"`
	DefaultChain  string `yaml:"default_chain"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

// Webhook configures the inbound signal listener.
type Webhook struct {
	ListenAddr      string `yaml:"listen_addr"`
	DefaultSlippage *int   `yaml:"default_slippage_bps"` // nil means DefaultSlippageBps; 0 is a valid setting
}

// SlippageBps is the slippage applied when a signal omits one.
func (w Webhook) SlippageBps() int {
	if w.DefaultSlippage == nil {
		return DefaultSlippageBps
	}
	return *w.DefaultSlippage
}

// Risk encodes guard-rails on what a single signal may spend.
type Risk struct {
	MaxBuySol float64 `yaml:"max_buy_sol"` // 0 disables the cap
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App         `yaml:"app"`
	Dex         Dex         `yaml:"dex"`
	Wallet      Wallet      `yaml:"wallet"`
	DexScreener DexScreener `yaml:"dexscreener"`
	Webhook     Webhook     `yaml:"webhook"`
	Risk        Risk        `yaml:"risk"`
}

// Load reads a YAML file from disk, applies env overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Dex.RpcURL, "SOLANA_RPC_URL")
	setString(&c.Dex.JupiterBase, "JUPITER_BASE_URL")
	setString(&c.Dex.Commitment, "FASTBOT_COMMITMENT")
	setString(&c.Wallet.PublicKey, "FASTBOT_WALLET_PUBLIC_KEY")
	setString(&c.Webhook.ListenAddr, "FASTBOT_LISTEN_ADDR")
	setString(&c.App.MetricsAddr, "FASTBOT_METRICS_ADDR")
	setString(&c.App.LogLevel, "FASTBOT_LOG_LEVEL")
	if v, ok := os.LookupEnv("FASTBOT_INSECURE_SKIP_VERIFY"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Dex.InsecureSkipVerify = b
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "fastbot"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Dex.RpcURL == "" {
		c.Dex.RpcURL = DefaultRPCURL
	}
	if c.Dex.Commitment == "" {
		c.Dex.Commitment = "confirmed"
	}
	if c.Dex.JupiterBase == "" {
		c.Dex.JupiterBase = DefaultJupiterBase
	}
	if c.Dex.NativeMint == "" {
		c.Dex.NativeMint = DefaultNativeMint
	}
	if c.Dex.ExplorerURL == "" {
		c.Dex.ExplorerURL = DefaultExplorerURL
	}
	if c.Dex.TimeoutSeconds == 0 {
		c.Dex.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.DexScreener.DefaultChain == "" {
		c.DexScreener.DefaultChain = "solana"
	}
	if c.Webhook.ListenAddr == "" {
		c.Webhook.ListenAddr = ":8080"
	}
	if c.Webhook.DefaultSlippage == nil {
		bps := DefaultSlippageBps
		c.Webhook.DefaultSlippage = &bps
	}
}

// Validate reports every problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var err error
	switch c.Dex.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		err = multierr.Append(err, fmt.Errorf("dex.commitment %q must be processed, confirmed or finalized", c.Dex.Commitment))
	}
	if !strings.HasPrefix(c.Dex.RpcURL, "http://") && !strings.HasPrefix(c.Dex.RpcURL, "https://") {
		err = multierr.Append(err, fmt.Errorf("dex.rpc_url %q is not an http url", c.Dex.RpcURL))
	}
	if !strings.HasPrefix(c.Dex.JupiterBase, "http://") && !strings.HasPrefix(c.Dex.JupiterBase, "https://") {
		err = multierr.Append(err, fmt.Errorf("dex.jupiter_base %q is not an http url", c.Dex.JupiterBase))
	}
	if strings.Count(c.Dex.ExplorerURL, "%s") != 1 {
		err = multierr.Append(err, fmt.Errorf("dex.explorer_url must contain exactly one %%s"))
	}
	if c.Dex.TimeoutSeconds < 0 {
		err = multierr.Append(err, errors.New("dex.timeout_seconds must not be negative"))
	}
	if c.Webhook.SlippageBps() < 0 {
		err = multierr.Append(err, errors.New("webhook.default_slippage_bps must not be negative"))
	}
	if c.Risk.MaxBuySol < 0 {
		err = multierr.Append(err, errors.New("risk.max_buy_sol must not be negative"))
	}
	if c.DexScreener.RatePerMinute < 0 {
		err = multierr.Append(err, errors.New("dexscreener.rate_per_minute must not be negative"))
	}
	return err
}

// Save persists a Config struct to disk as YAML. The private key is never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	out := *cfg
	out.Wallet.PrivateKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
