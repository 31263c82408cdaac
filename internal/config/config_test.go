package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valueid/valueid-client/internal/models"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CHAIN_ID", "0x1")
	t.Setenv("RPC_URL", "https://a.example, https://b.example")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("USDT_ADDRESS", "")
	t.Setenv("NETWORK_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint64(1), cfg.Network.ChainID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Network.RPCURLs)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Empty(t, cfg.Currencies)
	assert.NoError(t, cfg.RequireContract())
}

func TestDefaultsTargetSepolia(t *testing.T) {
	t.Setenv("CHAIN_ID", "")
	os.Unsetenv("CHAIN_ID")
	t.Setenv("NETWORK_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", cfg.Network.ChainIDHex())
	assert.Equal(t, models.Currency{Symbol: "USDT", Decimals: 6},
		cfg.Currencies["0x7169d38820dfd117c3fa1f22a697dba58d90ba06"])
}

func TestValidateRejectsBadContract(t *testing.T) {
	t.Setenv("CONTRACT_ADDRESS", "0x1234")
	t.Setenv("NETWORK_FILE", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadNetworkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.toml")
	data := `
contract_address = "0x00000000000000000000000000000000000000bb"

[network]
chain_id = 31337
chain_name = "Localhost"
rpc_urls = ["http://127.0.0.1:8545"]

[network.native_currency]
name = "Ether"
symbol = "ETH"
decimals = 18

[[currencies]]
address = "0x00000000000000000000000000000000000000CC"
symbol = "USDT"
decimals = 6
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg := &Config{}
	require.NoError(t, cfg.LoadNetworkFile(path))

	assert.Equal(t, uint64(31337), cfg.Network.ChainID)
	assert.Equal(t, "Localhost", cfg.Network.ChainName)
	assert.Equal(t, "ETH", cfg.Network.NativeCurrency.Symbol)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", cfg.ContractAddress)
	assert.Equal(t, models.Currency{Symbol: "USDT", Decimals: 6},
		cfg.Currencies["0x00000000000000000000000000000000000000cc"])
}

func TestLoadNetworkFileRejectsBadCurrency(t *testing.T) {
	cfg := &Config{}
	err := cfg.applyNetworkFile([]byte(`
[[currencies]]
address = "nope"
symbol = "X"
`))
	assert.Error(t, err)
}
