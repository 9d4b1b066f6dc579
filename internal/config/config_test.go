package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `
log_level = "info"
rpc_url = "wss://node.example.org:443"

[signer]
typ = "Phrase"
val = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

[faucet]
secret_uri = "//Bob"
amount = 250

[did]
sync = false
explorer = true
explorer_start_block = 120
contract_address = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
metadata_path = "/etc/provisioner/did.json"
tx_timeout = "90s"

[did.attributes]
data_type = "temperature"
location = "Berlin"
price_access = "10"
pin_access = "1"

[did.attributes.additional]
unit = "celsius"
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func Test_Load(t *testing.T) {
	t.Run("Should use defaults when the file is missing", func(t *testing.T) {
		cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
		assert.Nil(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, 5*time.Minute, cfg.TxTimeoutDuration())
	})
	t.Run("Should read every section of a file", func(t *testing.T) {
		cfg, err := Load(viper.New(), writeConfig(t, sampleConfig))
		assert.Nil(t, err)

		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "wss://node.example.org:443", cfg.RpcUrl)
		assert.Equal(t, "Phrase", cfg.Signer.Typ)
		assert.Equal(t, "//Bob", cfg.Faucet.SecretUri)
		assert.Equal(t, uint64(250), cfg.Faucet.Amount)
		assert.False(t, cfg.DID.Sync)
		assert.True(t, cfg.DID.Explorer)
		assert.Equal(t, uint64(120), cfg.DID.ExplorerStartBlock)
		assert.Equal(t, "/etc/provisioner/did.json", cfg.DID.MetadataPath)
		assert.Equal(t, 90*time.Second, cfg.TxTimeoutDuration())
		assert.Equal(t, "Berlin", cfg.DID.Attributes.Location)
		assert.Equal(t, map[string]interface{}{"unit": "celsius"}, cfg.DID.Attributes.Additional)

		account, err := cfg.ContractAccount()
		assert.Nil(t, err)
		assert.Equal(t, cfg.DID.ContractAddress, account.String())
	})
	t.Run("Should let the environment override the file", func(t *testing.T) {
		t.Setenv("PROVISIONER_LOG_LEVEL", "warn")
		t.Setenv("PROVISIONER_DID_EXPLORER_START_BLOCK", "7")
		t.Setenv("PROVISIONER_DID_SYNC", "true")

		cfg, err := Load(viper.New(), writeConfig(t, sampleConfig))
		assert.Nil(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, uint64(7), cfg.DID.ExplorerStartBlock)
		assert.True(t, cfg.DID.Sync)
	})
	t.Run("Should keep arrays and tables in additional attributes", func(t *testing.T) {
		body := sampleConfig + `ports = [80, 443]

[did.attributes.additional.geo]
lat = 52.52
city = "Berlin"
`
		cfg, err := Load(viper.New(), writeConfig(t, body))
		assert.Nil(t, err)
		expected := map[string]interface{}{
			"unit":  "celsius",
			"ports": []interface{}{int64(80), int64(443)},
			"geo":   map[string]interface{}{"lat": 52.52, "city": "Berlin"},
		}
		assert.Equal(t, expected, cfg.DID.Attributes.Additional)

		out, err := cfg.Marshal("toml")
		assert.Nil(t, err)
		again, err := Load(viper.New(), writeConfig(t, string(out)))
		assert.Nil(t, err)
		assert.Equal(t, expected, again.DID.Attributes.Additional)
	})
	t.Run("Should fail on malformed toml", func(t *testing.T) {
		_, err := Load(viper.New(), writeConfig(t, "log_level = "))
		assert.NotNil(t, err)
	})
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"rpc url scheme", func(c *Config) { c.RpcUrl = "tcp://127.0.0.1:9944" }},
		{"signer type", func(c *Config) { c.Signer.Typ = "Ledger" }},
		{"contract address", func(c *Config) { c.DID.ContractAddress = "5H4UGYpLFL2aobsv71Csi" }},
		{"tx timeout", func(c *Config) { c.DID.TxTimeout = "soon" }},
		{"negative tx timeout", func(c *Config) { c.DID.TxTimeout = "-1s" }},
		{"statsd without url", func(c *Config) { c.Metrics.StatsdEnabled = true }},
	}
	assert.Nil(t, Default().Validate())
	for _, tt := range tests {
		t.Run("Should reject an invalid "+tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.NotNil(t, cfg.Validate())
		})
	}
}

func Test_Marshal(t *testing.T) {
	t.Run("Should render toml that loads back to the defaults", func(t *testing.T) {
		out, err := Default().Marshal("toml")
		assert.Nil(t, err)

		decoded := &Config{}
		assert.Nil(t, toml.Unmarshal(out, decoded))
		decoded.DID.Attributes.Additional = map[string]interface{}{}
		assert.Equal(t, Default(), decoded)

		cfg, err := Load(viper.New(), writeConfig(t, string(out)))
		assert.Nil(t, err)
		assert.Equal(t, Default(), cfg)
	})
	t.Run("Should render yaml", func(t *testing.T) {
		out, err := Default().Marshal("yaml")
		assert.Nil(t, err)

		decoded := &Config{}
		assert.Nil(t, yaml.Unmarshal(out, decoded))
		decoded.DID.Attributes.Additional = map[string]interface{}{}
		assert.Equal(t, Default(), decoded)
	})
	t.Run("Should reject unknown formats", func(t *testing.T) {
		_, err := Default().Marshal("json")
		assert.NotNil(t, err)
	})
	t.Run("Should convert flag names", func(t *testing.T) {
		assert.Equal(t, "did.tx_timeout", KebabToSnakeCase("did.tx-timeout"))
	})
}
