package main

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is cloakwalletd's configuration surface: one struct, environment-
// overridable through viper, loaded at the start of each subcommand's Run.
type Config struct {
	// Environment selects which network the wallet talks to, "Mainnet" or
	// "TestNet".
	Environment string

	// WalletDir is the directory the wallet's storm database and logger
	// live in.
	WalletDir string

	// WalletAPIAddr is the addr:port a serving deployment would bind the
	// wallet API on. The CLI subcommands drive the facade in-process and
	// do not bind it.
	WalletAPIAddr string

	// NodeAddr is the root URL of the node RPC collaborator this wallet
	// fetches outputs from and submits transactions to.
	NodeAddr string

	// NodePublicKey is the node's compressed public key in hex, used to
	// seal requests on the encrypted transport (rpc.SealRequest). The
	// plain-HTTP rpc.Client does not use it.
	NodePublicKey string
}

// DefaultConfig pins every field to a default a developer running the
// daemon locally can use unmodified.
func DefaultConfig() Config {
	return Config{
		Environment:   "TestNet",
		WalletDir:     filepath.Join(".", "cloakwallet-data"),
		WalletAPIAddr: "127.0.0.1:23120",
		NodeAddr:      "http://127.0.0.1:23110",
		NodePublicKey: "",
	}
}

// loadConfig reads cloakwalletd.yaml from configDir (if present) over
// DefaultConfig, then applies CLOAKWALLET_-prefixed environment overrides.
func loadConfig(configDir string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("cloakwalletd")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("CLOAKWALLET")
	v.AutomaticEnv()

	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("walletdir", cfg.WalletDir)
	v.SetDefault("walletapiaddr", cfg.WalletAPIAddr)
	v.SetDefault("nodeaddr", cfg.NodeAddr)
	v.SetDefault("nodepublickey", cfg.NodePublicKey)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg.Environment = v.GetString("environment")
	cfg.WalletDir = v.GetString("walletdir")
	cfg.WalletAPIAddr = v.GetString("walletapiaddr")
	cfg.NodeAddr = v.GetString("nodeaddr")
	cfg.NodePublicKey = v.GetString("nodepublickey")
	return cfg, nil
}
