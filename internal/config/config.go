package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/validation"
)

const (
	// SepoliaChainID is the default target network (0xaa36a7).
	SepoliaChainID = 11155111

	DefaultPlaceholderImage = "/images/placeholder.png"
)

type Config struct {
	Development bool

	// REST API configuration
	APIBaseURL string
	APITimeout time.Duration
	APIToken   string

	// Blockchain configuration
	Network         models.NetworkDescriptor
	ContractAddress string

	// Wallet configuration. WalletRPCURL takes precedence over WalletPrivateKey.
	WalletRPCURL       string
	WalletPrivateKey   string
	WalletPollInterval time.Duration

	// Presentation defaults
	PlaceholderImage string
	MetadataGateway  string

	// Currencies maps payment-token addresses to display currencies.
	// The zero address always resolves to the network's native currency.
	Currencies map[string]models.Currency

	MockAPIPort int
	// MockAPIDatabaseURL enables Postgres persistence for the mock backend.
	MockAPIDatabaseURL string
	MetricsPort        int

	NetworkFile string
}

// networkFile is the optional per-deployment TOML file.
type networkFile struct {
	ContractAddress string                    `toml:"contract_address"`
	Network         *models.NetworkDescriptor `toml:"network"`
	Currencies      []currencyEntry           `toml:"currencies"`
}

type currencyEntry struct {
	Address  string `toml:"address"`
	Symbol   string `toml:"symbol"`
	Decimals int32  `toml:"decimals"`
}

// LoadConfig loads the configuration from environment variables and the optional network file
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8088"),
		APITimeout: getEnvAsDuration("API_TIMEOUT", 15*time.Second),
		APIToken:   getEnv("API_TOKEN", ""),

		Network: models.NetworkDescriptor{
			ChainID:           getEnvAsUint64("CHAIN_ID", SepoliaChainID),
			ChainName:         getEnv("CHAIN_NAME", "Sepolia"),
			RPCURLs:           getEnvAsList("RPC_URL", []string{"https://rpc.sepolia.org"}),
			BlockExplorerURLs: getEnvAsList("BLOCK_EXPLORER_URL", []string{"https://sepolia.etherscan.io"}),
			NativeCurrency: models.NativeCurrency{
				Name:     getEnv("NATIVE_CURRENCY_NAME", "Ether"),
				Symbol:   getEnv("NATIVE_CURRENCY_SYMBOL", "ETH"),
				Decimals: getEnvAsInt("NATIVE_CURRENCY_DECIMALS", 18),
			},
		},
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),

		WalletRPCURL:       getEnv("WALLET_RPC_URL", ""),
		WalletPrivateKey:   getEnv("WALLET_PRIVATE_KEY", ""),
		WalletPollInterval: getEnvAsDuration("WALLET_POLL_INTERVAL", 2*time.Second),

		PlaceholderImage: getEnv("PLACEHOLDER_IMAGE", DefaultPlaceholderImage),
		MetadataGateway:  getEnv("METADATA_GATEWAY", "https://ipfs.io/ipfs/"),

		Currencies: map[string]models.Currency{},

		MockAPIPort:        getEnvAsInt("MOCK_API_PORT", 8088),
		MockAPIDatabaseURL: getEnv("MOCK_API_DATABASE_URL", ""),
		MetricsPort:        getEnvAsInt("METRICS_PORT", 0),

		NetworkFile: getEnv("NETWORK_FILE", ""),
	}

	if usdt := getEnv("USDT_ADDRESS", "0x7169D38820dfd117C3FA1f22a697dBA58d90BA06"); usdt != "" {
		cfg.Currencies[validation.NormalizeAddress(usdt)] = models.Currency{Symbol: "USDT", Decimals: 6}
	}

	if cfg.NetworkFile != "" {
		if err := cfg.LoadNetworkFile(cfg.NetworkFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadNetworkFile overlays the network descriptor, contract address and currency
// table from a TOML file. Values present in the file win over the environment.
func (c *Config) LoadNetworkFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read network file: %w", err)
	}
	return c.applyNetworkFile(data)
}

func (c *Config) applyNetworkFile(data []byte) error {
	var file networkFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse network file: %w", err)
	}

	if file.Network != nil {
		c.Network = *file.Network
	}
	if file.ContractAddress != "" {
		c.ContractAddress = file.ContractAddress
	}
	for _, entry := range file.Currencies {
		addr, err := validation.ValidateAndNormalizeAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("invalid currency address %q: %w", entry.Address, err)
		}
		if entry.Symbol == "" {
			return fmt.Errorf("currency %s has no symbol", addr)
		}
		if c.Currencies == nil {
			c.Currencies = map[string]models.Currency{}
		}
		c.Currencies[addr] = models.Currency{Symbol: entry.Symbol, Decimals: entry.Decimals}
	}
	return nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	if c.Network.ChainID == 0 {
		return fmt.Errorf("CHAIN_ID is required")
	}
	if len(c.Network.RPCURLs) == 0 {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.Network.NativeCurrency.Symbol == "" {
		return fmt.Errorf("NATIVE_CURRENCY_SYMBOL is required")
	}

	if c.ContractAddress != "" {
		if err := validation.ValidateAddress(c.ContractAddress); err != nil {
			return fmt.Errorf("invalid CONTRACT_ADDRESS format: %w", err)
		}
	}

	for addr := range c.Currencies {
		if err := validation.ValidateAddress(addr); err != nil {
			return fmt.Errorf("invalid currency address %q: %w", addr, err)
		}
	}

	return nil
}

// RequireContract reports whether chain operations can be configured.
func (c *Config) RequireContract() error {
	if c.ContractAddress == "" {
		return fmt.Errorf("CONTRACT_ADDRESS is required")
	}
	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvAsUint64 accepts decimal or 0x-prefixed hex values.
func getEnvAsUint64(name string, defaultValue uint64) uint64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseUint(valueStr, 0, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value.
func getEnvAsList(name string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
