package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the bridge daemon configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	EVM        EVMConfig        `mapstructure:"evm"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings for the run-history store
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// EVMConfig contains source-chain client settings
type EVMConfig struct {
	RPCURL           string        `mapstructure:"rpc_url" validate:"required"`
	ChainID          int64         `mapstructure:"chain_id" validate:"required"`
	WalletPrivateKey string        `mapstructure:"wallet_private_key" validate:"required"`
	GasLimit         uint64        `mapstructure:"gas_limit"`
	MaxGasPrice      string        `mapstructure:"max_gas_price"`
	ReceiptTimeout   time.Duration `mapstructure:"receipt_timeout"`
	ReceiptInterval  time.Duration `mapstructure:"receipt_interval"`
}

// LedgerConfig contains settings for the IC-side bridge orchestrator service
type LedgerConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Auth           AuthConfig    `mapstructure:"auth"`
}

// AuthConfig holds bearer-token settings for the ledger service
type AuthConfig struct {
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	Subject  string        `mapstructure:"subject"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// BridgeConfig contains orchestration settings
type BridgeConfig struct {
	// TransferDelay is the pause between sequential on-chain transfers in a
	// multi-asset run, to avoid provider-side rate limits and nonce races.
	TransferDelay time.Duration `mapstructure:"transfer_delay"`
	PollAttempts  int           `mapstructure:"poll_attempts"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "cknft_bridge")

	// EVM defaults
	viper.SetDefault("evm.gas_limit", 300000)
	viper.SetDefault("evm.receipt_timeout", "2m")
	viper.SetDefault("evm.receipt_interval", "3s")

	// Ledger defaults
	viper.SetDefault("ledger.request_timeout", "30s")
	viper.SetDefault("ledger.auth.token_ttl", "15m")

	// Bridge defaults. The 30x2s poll envelope matches expected ledger-side
	// finality latency; changing it changes how long a mint may stay
	// non-terminal before being reported as still pending.
	viper.SetDefault("bridge.transfer_delay", "1s")
	viper.SetDefault("bridge.poll_attempts", 30)
	viper.SetDefault("bridge.poll_interval", "2s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(config); err != nil {
		return err
	}
	if config.Bridge.PollAttempts <= 0 {
		return fmt.Errorf("bridge.poll_attempts must be positive")
	}
	if config.Bridge.PollInterval <= 0 {
		return fmt.Errorf("bridge.poll_interval must be positive")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
