// Package config loads and validates the client configuration file.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/avocetlabs/walletcore/core/chainio/aa"
)

const defaultPollInterval = 12 * time.Second

// Config is the fully-parsed runtime configuration.
type Config struct {
	Logger     sdklogging.Logger
	Production bool

	EthRpcUrl     string
	BundlerRpcUrl string
	PaymasterUrl  string

	EntryPointAddress common.Address
	FactoryAddress    common.Address
	InitCodeHash      common.Hash

	// json:"-" skips the key when the config is logged out
	ControllerPrivateKey *ecdsa.PrivateKey `json:"-"`
	ControllerAddress    common.Address

	DbPath       string
	PollInterval time.Duration

	EnableMetrics        bool
	MetricsIpPortAddress string
}

// ConfigRaw is the on-disk yaml shape, validated before any parsing.
type ConfigRaw struct {
	Production bool `yaml:"production"`

	EthRpcUrl     string `yaml:"eth_rpc_url" validate:"required,url"`
	BundlerRpcUrl string `yaml:"bundler_rpc_url" validate:"required,url"`
	PaymasterUrl  string `yaml:"paymaster_url" validate:"omitempty,url"`

	EntryPointAddress string `yaml:"entrypoint_address" validate:"omitempty,eth_addr"`
	FactoryAddress    string `yaml:"factory_address" validate:"required,eth_addr"`
	InitCodeHash      string `yaml:"init_code_hash" validate:"required,len=66,hexadecimal"`

	ControllerPrivateKey string `yaml:"controller_private_key" validate:"required"`

	DbPath              string `yaml:"db_path"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds" validate:"omitempty,min=1"`

	EnableMetrics        bool   `yaml:"enable_metrics"`
	MetricsIpPortAddress string `yaml:"metrics_ip_port_address"`
}

// NewConfig reads the yaml file at configFilePath and returns the validated,
// typed configuration.
func NewConfig(configFilePath string) (*Config, error) {
	body, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", configFilePath, err)
	}

	raw := ConfigRaw{}
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("config file %s is not valid yaml: %w", configFilePath, err)
	}

	return NewConfigFromRaw(&raw)
}

func NewConfigFromRaw(raw *ConfigRaw) (*Config, error) {
	if err := validator.New().Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logLevel := sdklogging.Development
	if raw.Production {
		logLevel = sdklogging.Production
	}
	logger, err := sdklogging.NewZapLogger(logLevel)
	if err != nil {
		return nil, err
	}

	controllerKey, err := crypto.HexToECDSA(raw.ControllerPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("cannot parse controller private key: %w", err)
	}

	entryPoint := aa.EntrypointAddress
	if raw.EntryPointAddress != "" {
		entryPoint = common.HexToAddress(raw.EntryPointAddress)
	}

	pollInterval := defaultPollInterval
	if raw.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(raw.PollIntervalSeconds) * time.Second
	}

	dbPath := raw.DbPath
	if dbPath == "" {
		dbPath = "/tmp/walletcore"
	}

	return &Config{
		Logger:     logger,
		Production: raw.Production,

		EthRpcUrl:     raw.EthRpcUrl,
		BundlerRpcUrl: raw.BundlerRpcUrl,
		PaymasterUrl:  raw.PaymasterUrl,

		EntryPointAddress: entryPoint,
		FactoryAddress:    common.HexToAddress(raw.FactoryAddress),
		InitCodeHash:      common.HexToHash(raw.InitCodeHash),

		ControllerPrivateKey: controllerKey,
		ControllerAddress:    crypto.PubkeyToAddress(controllerKey.PublicKey),

		DbPath:       dbPath,
		PollInterval: pollInterval,

		EnableMetrics:        raw.EnableMetrics,
		MetricsIpPortAddress: raw.MetricsIpPortAddress,
	}, nil
}

// SupportsPaymaster reports whether a sponsorship endpoint was configured.
func (c *Config) SupportsPaymaster() bool {
	return c.PaymasterUrl != ""
}
