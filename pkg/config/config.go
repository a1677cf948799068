// Package config loads engine configuration from the environment and
// bootstrap profiles (roles, function schemas, whitelists) from YAML.
package config

import (
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/castellan-io/castellan/pkg/types"
)

// Config holds engine runtime configuration.
type Config struct {
	TimeLockPeriod time.Duration
	ChainID        *big.Int
	Instance       types.Address
	EventLogPath   string
	LogLevel       string
	ProfilePath    string
}

// Load loads configuration from environment variables.
func Load() *Config {
	timelock := 24 * time.Hour
	if raw := os.Getenv("CASTELLAN_TIMELOCK"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timelock = d
		}
	}

	chainID := big.NewInt(1)
	if raw := os.Getenv("CASTELLAN_CHAIN_ID"); raw != "" {
		if id, ok := new(big.Int).SetString(raw, 10); ok && id.Sign() > 0 {
			chainID = id
		}
	}

	var instance types.Address
	if raw := os.Getenv("CASTELLAN_INSTANCE"); raw != "" {
		instance = common.HexToAddress(raw)
	}

	eventLogPath := os.Getenv("CASTELLAN_EVENT_DB")
	if eventLogPath == "" {
		eventLogPath = ":memory:"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		TimeLockPeriod: timelock,
		ChainID:        chainID,
		Instance:       instance,
		EventLogPath:   eventLogPath,
		LogLevel:       logLevel,
		ProfilePath:    os.Getenv("CASTELLAN_PROFILE"),
	}
}
