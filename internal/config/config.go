// Package config loads the provisioner configuration from a TOML file,
// environment variables and command line flags.
package config

import (
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/staex-io/did-provisioner/internal/logger"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"gopkg.in/yaml.v3"
)

const ENV_PREFIX = "PROVISIONER"

const DefaultConfigPath = "config.toml"

// Keys as seen by viper.
const (
	ConfigPath = "config"

	LogLevel = "log_level"
	RpcUrl   = "rpc_url"

	SignerTyp = "signer.typ"
	SignerVal = "signer.val"

	FaucetSecretUri = "faucet.secret_uri"
	FaucetAmount    = "faucet.amount"

	DidSync               = "did.sync"
	DidExplorer           = "did.explorer"
	DidExplorerStartBlock = "did.explorer_start_block"
	DidContractAddress    = "did.contract_address"
	DidMetadataPath       = "did.metadata_path"
	DidTxTimeout          = "did.tx_timeout"
	DidDataType           = "did.attributes.data_type"
	DidLocation           = "did.attributes.location"
	DidPriceAccess        = "did.attributes.price_access"
	DidPinAccess          = "did.attributes.pin_access"
	DidAdditional         = "did.attributes.additional"

	PrometheusEnabled = "metrics.prometheus_enabled"
	PrometheusPort    = "metrics.prometheus_port"
	StatsdEnabled     = "metrics.statsd_enabled"
	StatsdUrl         = "metrics.statsd_url"

	TracingEnabled = "tracing.enabled"
)

type SignerConfig struct {
	Typ string `mapstructure:"typ" toml:"typ" yaml:"typ"`
	Val string `mapstructure:"val" toml:"val" yaml:"val"`
}

type FaucetConfig struct {
	SecretUri string `mapstructure:"secret_uri" toml:"secret_uri" yaml:"secret_uri"`
	// Amount is in DOT.
	Amount uint64 `mapstructure:"amount" toml:"amount" yaml:"amount"`
}

type AttributesConfig struct {
	DataType    string `mapstructure:"data_type" toml:"data_type" yaml:"data_type"`
	Location    string `mapstructure:"location" toml:"location" yaml:"location"`
	PriceAccess string `mapstructure:"price_access" toml:"price_access" yaml:"price_access"`
	PinAccess   string `mapstructure:"pin_access" toml:"pin_access" yaml:"pin_access"`
	// Additional holds free-form attributes. Values keep their TOML shape:
	// scalars, arrays and nested tables.
	Additional map[string]interface{} `mapstructure:"additional" toml:"additional,omitempty" yaml:"additional,omitempty"`
}

type DIDConfig struct {
	Sync               bool             `mapstructure:"sync" toml:"sync" yaml:"sync"`
	Explorer           bool             `mapstructure:"explorer" toml:"explorer" yaml:"explorer"`
	ExplorerStartBlock uint64           `mapstructure:"explorer_start_block" toml:"explorer_start_block" yaml:"explorer_start_block"`
	ContractAddress    string           `mapstructure:"contract_address" toml:"contract_address" yaml:"contract_address"`
	MetadataPath       string           `mapstructure:"metadata_path" toml:"metadata_path" yaml:"metadata_path"`
	TxTimeout          string           `mapstructure:"tx_timeout" toml:"tx_timeout" yaml:"tx_timeout"`
	Attributes         AttributesConfig `mapstructure:"attributes" toml:"attributes" yaml:"attributes"`
}

type MetricsConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" toml:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusPort    int    `mapstructure:"prometheus_port" toml:"prometheus_port" yaml:"prometheus_port"`
	StatsdEnabled     bool   `mapstructure:"statsd_enabled" toml:"statsd_enabled" yaml:"statsd_enabled"`
	StatsdUrl         string `mapstructure:"statsd_url" toml:"statsd_url" yaml:"statsd_url"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
}

type Config struct {
	LogLevel string        `mapstructure:"log_level" toml:"log_level" yaml:"log_level"`
	RpcUrl   string        `mapstructure:"rpc_url" toml:"rpc_url" yaml:"rpc_url"`
	Signer   SignerConfig  `mapstructure:"signer" toml:"signer" yaml:"signer"`
	Faucet   FaucetConfig  `mapstructure:"faucet" toml:"faucet" yaml:"faucet"`
	DID      DIDConfig     `mapstructure:"did" toml:"did" yaml:"did"`
	Metrics  MetricsConfig `mapstructure:"metrics" toml:"metrics" yaml:"metrics"`
	Tracing  TracingConfig `mapstructure:"tracing" toml:"tracing" yaml:"tracing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "debug",
		RpcUrl:   "ws://127.0.0.1:9944",
		Signer: SignerConfig{
			Typ: string(signer.SignerType_SecretUri),
			Val: "//Alice",
		},
		Faucet: FaucetConfig{
			SecretUri: "//Alice",
			Amount:    100_000,
		},
		DID: DIDConfig{
			Sync:               true,
			Explorer:           true,
			ExplorerStartBlock: 0,
			ContractAddress:    "5H4UGYpLFL2aobsv71CsiFwfcXe9yoSMGtrc6VENGzGRyQZa",
			MetadataPath:       "assets/did.metadata.json",
			TxTimeout:          "5m",
			Attributes: AttributesConfig{
				Additional: map[string]interface{}{},
			},
		},
		Metrics: MetricsConfig{
			PrometheusPort: 2112,
		},
	}
}

// SetDefaults registers every key with its default so that environment
// variables are picked up for all of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(LogLevel, d.LogLevel)
	v.SetDefault(RpcUrl, d.RpcUrl)
	v.SetDefault(SignerTyp, d.Signer.Typ)
	v.SetDefault(SignerVal, d.Signer.Val)
	v.SetDefault(FaucetSecretUri, d.Faucet.SecretUri)
	v.SetDefault(FaucetAmount, d.Faucet.Amount)
	v.SetDefault(DidSync, d.DID.Sync)
	v.SetDefault(DidExplorer, d.DID.Explorer)
	v.SetDefault(DidExplorerStartBlock, d.DID.ExplorerStartBlock)
	v.SetDefault(DidContractAddress, d.DID.ContractAddress)
	v.SetDefault(DidMetadataPath, d.DID.MetadataPath)
	v.SetDefault(DidTxTimeout, d.DID.TxTimeout)
	v.SetDefault(DidDataType, d.DID.Attributes.DataType)
	v.SetDefault(DidLocation, d.DID.Attributes.Location)
	v.SetDefault(DidPriceAccess, d.DID.Attributes.PriceAccess)
	v.SetDefault(DidPinAccess, d.DID.Attributes.PinAccess)
	v.SetDefault(DidAdditional, d.DID.Attributes.Additional)
	v.SetDefault(PrometheusEnabled, d.Metrics.PrometheusEnabled)
	v.SetDefault(PrometheusPort, d.Metrics.PrometheusPort)
	v.SetDefault(StatsdEnabled, d.Metrics.StatsdEnabled)
	v.SetDefault(StatsdUrl, d.Metrics.StatsdUrl)
	v.SetDefault(TracingEnabled, d.Tracing.Enabled)
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

// BindEnv makes PROVISIONER_DID_TX_TIMEOUT override did.tx_timeout and so on.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load reads path into v and decodes the result. A missing file is not an
// error: defaults and environment overrides still apply.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config '%s'", path)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to stat config '%s'", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if cfg.DID.Attributes.Additional == nil {
		cfg.DID.Attributes.Additional = map[string]interface{}{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid %s", LogLevel)
	}
	u, err := url.Parse(c.RpcUrl)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", RpcUrl)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return errors.Errorf("invalid %s '%s': scheme must be ws, wss, http or https", RpcUrl, c.RpcUrl)
	}
	switch signer.SignerType(c.Signer.Typ) {
	case signer.SignerType_SecretUri, signer.SignerType_Phrase:
	default:
		return errors.Errorf("invalid %s '%s': expected %s or %s", SignerTyp, c.Signer.Typ, signer.SignerType_SecretUri, signer.SignerType_Phrase)
	}
	if _, err := c.ContractAccount(); err != nil {
		return errors.Wrapf(err, "invalid %s", DidContractAddress)
	}
	if d, err := time.ParseDuration(c.DID.TxTimeout); err != nil || d <= 0 {
		return errors.Errorf("invalid %s '%s': expected a positive duration", DidTxTimeout, c.DID.TxTimeout)
	}
	if c.Metrics.StatsdEnabled && c.Metrics.StatsdUrl == "" {
		return errors.Errorf("%s is required when statsd is enabled", StatsdUrl)
	}
	return nil
}

func (c *Config) ContractAccount() (ss58.AccountID, error) {
	return ss58.ParseAccountID(c.DID.ContractAddress)
}

// TxTimeoutDuration is the parsed did.tx_timeout. Validate guarantees it parses.
func (c *Config) TxTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.DID.TxTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Marshal renders the configuration as "toml" or "yaml".
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "toml", "":
		return toml.Marshal(c)
	case "yaml", "yml":
		return yaml.Marshal(c)
	default:
		return nil, errors.Errorf("unsupported output format '%s'", format)
	}
}
