package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CASTELLAN_TIMELOCK", "")
	t.Setenv("CASTELLAN_CHAIN_ID", "")
	t.Setenv("CASTELLAN_INSTANCE", "")
	t.Setenv("CASTELLAN_EVENT_DB", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TimeLockPeriod)
	assert.Equal(t, big.NewInt(1), cfg.ChainID)
	assert.Equal(t, ":memory:", cfg.EventLogPath)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CASTELLAN_TIMELOCK", "48h")
	t.Setenv("CASTELLAN_CHAIN_ID", "137")
	t.Setenv("CASTELLAN_INSTANCE", "0x00000000000000000000000000000000000000aa")
	t.Setenv("CASTELLAN_EVENT_DB", "/var/lib/castellan/events.db")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	assert.Equal(t, 48*time.Hour, cfg.TimeLockPeriod)
	assert.Equal(t, big.NewInt(137), cfg.ChainID)
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Instance)
	assert.Equal(t, "/var/lib/castellan/events.db", cfg.EventLogPath)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CASTELLAN_TIMELOCK", "not-a-duration")
	t.Setenv("CASTELLAN_CHAIN_ID", "-5")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TimeLockPeriod)
	assert.Equal(t, big.NewInt(1), cfg.ChainID)
}
