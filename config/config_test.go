package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

const sampleConfig = `
listen = "tcp:0.0.0.0:9090"
treasury = "treasury"
operators = ["op-1", "op-2"]
min_increment_bps = 500
first_bid_floor = "0.01"
sweep_interval = "30s"
audit_log = "/var/log/auctiond/audit.cbor"

[[fee_tiers]]
min_usd = "0"
rate_bps = 100

[[fee_tiers]]
min_usd = "500"
rate_bps = 50

[[fee_tiers]]
min_usd = "1000"
rate_bps = 20

[[oracles]]
unit = "native"
price = "300000000000"
decimals = 8

[[genesis.balances]]
unit = "native"
account = "alice"
amount = "10"

[[genesis.assets]]
collection = "art"
serial = 1
owner = "seller"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auctiond.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	assert.Nil(t, err)

	check.Equal(t, "tcp:0.0.0.0:9090", cfg.Listen)
	check.Equal(t, "treasury", cfg.Treasury)
	check.Equal(t, []string{"op-1", "op-2"}, cfg.Operators)
	check.Equal(t, int64(500), cfg.MinIncrementBps)
	check.True(t, cfg.FirstBidFloor.Equal(decimal.RequireFromString("0.01")))
	check.Equal(t, 30*time.Second, cfg.SweepDuration())

	schedule, err := cfg.FeeSchedule()
	assert.Nil(t, err)
	assert.Equal(t, 3, len(schedule.Tiers))
	check.Equal(t, int64(20), schedule.Tiers[2].RateBps)

	assert.Equal(t, 1, len(cfg.Oracles))
	check.Equal(t, int32(8), cfg.Oracles[0].Decimals)
	assert.Equal(t, 1, len(cfg.Genesis.Balances))
	assert.Equal(t, 1, len(cfg.Genesis.Assets))
	check.Equal(t, uint64(1), cfg.Genesis.Assets[0].Serial)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "treasury = \"treasury\"\noperators = [\"op\"]\n"))
	assert.Nil(t, err)

	check.Equal(t, "tcp:127.0.0.1:9090", cfg.Listen)
	check.Equal(t, 32, cfg.MaxWorkers)
	check.Equal(t, time.Minute, cfg.SweepDuration())

	// No fee_tiers entries: the default schedule applies.
	schedule, err := cfg.FeeSchedule()
	assert.Nil(t, err)
	check.Equal(t, 3, len(schedule.Tiers))
	check.Equal(t, int64(100), schedule.DefaultRate())
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing treasury", "operators = [\"op\"]\n"},
		{"no operators", "treasury = \"t\"\n"},
		{"bad listen", "treasury = \"t\"\noperators = [\"op\"]\nlisten = \"udp:1234\"\n"},
		{"bad sweep interval", "treasury = \"t\"\noperators = [\"op\"]\nsweep_interval = \"soon\"\n"},
		{"negative increment", "treasury = \"t\"\noperators = [\"op\"]\nmin_increment_bps = -1\n"},
		{
			"nonzero first tier",
			"treasury = \"t\"\noperators = [\"op\"]\n[[fee_tiers]]\nmin_usd = \"5\"\nrate_bps = 100\n",
		},
		{
			"oracle without unit",
			"treasury = \"t\"\noperators = [\"op\"]\n[[oracles]]\nprice = \"1\"\ndecimals = 8\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			check.NotNil(t, err)
		})
	}
}

type mapLoader map[string]string

func (m mapLoader) Get(key string) string { return m[key] }

func TestApplyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	assert.Nil(t, err)

	err = cfg.ApplyOverrides(mapLoader{
		"AUCTIOND_LISTEN":         "vsock:5005",
		"AUCTIOND_TREASURY":       "vault",
		"AUCTIOND_MAX_WORKERS":    "8",
		"AUCTIOND_SWEEP_INTERVAL": "5s",
	})
	assert.Nil(t, err)

	check.Equal(t, "vsock:5005", cfg.Listen)
	check.Equal(t, "vault", cfg.Treasury)
	check.Equal(t, 8, cfg.MaxWorkers)
	check.Equal(t, 5*time.Second, cfg.SweepDuration())

	// Keys not present leave the file values alone.
	check.Equal(t, []string{"op-1", "op-2"}, cfg.Operators)
}

func TestApplyOverridesRejectsBadValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	assert.Nil(t, err)

	check.NotNil(t, cfg.ApplyOverrides(mapLoader{"AUCTIOND_MAX_WORKERS": "many"}))
	check.NotNil(t, cfg.ApplyOverrides(mapLoader{"AUCTIOND_SWEEP_INTERVAL": "fast"}))
	check.NotNil(t, cfg.ApplyOverrides(mapLoader{"AUCTIOND_LISTEN": "udp:9"}))
}
