package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Deposit  DepositConfig  `mapstructure:"deposit"`
	Withdraw WithdrawConfig `mapstructure:"withdraw"`
	Order    OrderConfig    `mapstructure:"order"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type WalletConfig struct {
	// Hex private key of the active session wallet. Empty means
	// "not connected": signing operations fail fast.
	PrivateKey string `mapstructure:"private_key"`
}

type ChainConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`

	// Optional per-chain address overrides. Keys are chain ids.
	Deployments map[string]DeploymentConfig `mapstructure:"deployments"`
}

type DeploymentConfig struct {
	CollateralToken string `mapstructure:"collateral_token"`
	Exchange        string `mapstructure:"exchange"`
	CTFExchange     string `mapstructure:"ctf_exchange"`
	Vault           string `mapstructure:"vault"`
}

type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}

type StreamConfig struct {
	URL                  string        `mapstructure:"url"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

type DepositConfig struct {
	// "allowance" or "custodial"
	Mode                string        `mapstructure:"mode"`
	AllowancePollEvery  time.Duration `mapstructure:"allowance_poll_every"`
	AllowancePollTries  int           `mapstructure:"allowance_poll_tries"`
	ConfirmPollEvery    time.Duration `mapstructure:"confirm_poll_every"`
	ConfirmPollTries    int           `mapstructure:"confirm_poll_tries"`
}

type WithdrawConfig struct {
	Token string `mapstructure:"token"`
}

type OrderConfig struct {
	ExpirationMinutes int   `mapstructure:"expiration_minutes"`
	FeeRateBps        int64 `mapstructure:"fee_rate_bps"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. POLYDESK_BACKEND_BASE_URL
	viper.SetEnvPrefix("polydesk")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("chain.chain_id", 137)
	viper.SetDefault("backend.timeout", "10s")
	viper.SetDefault("backend.requests_per_sec", 10.0)
	viper.SetDefault("stream.ping_interval", "30s")
	viper.SetDefault("stream.reconnect_delay", "3s")
	viper.SetDefault("stream.max_reconnect_attempts", 5)
	viper.SetDefault("deposit.mode", "allowance")
	viper.SetDefault("deposit.allowance_poll_every", "2s")
	viper.SetDefault("deposit.allowance_poll_tries", 30)
	viper.SetDefault("deposit.confirm_poll_every", "3s")
	viper.SetDefault("deposit.confirm_poll_tries", 30)
	viper.SetDefault("withdraw.token", "USDC")
	viper.SetDefault("order.expiration_minutes", 60)
	viper.SetDefault("order.fee_rate_bps", 0)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
