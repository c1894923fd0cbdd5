package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/poolhall-manager/internal/pricing"
)

func TestLoadTariffDefaults(t *testing.T) {
	tr, err := LoadTariff()
	require.NoError(t, err)

	assert.Equal(t, pricing.PolicyFlat, tr.Policy)
	assert.True(t, tr.BaseRate.Equal(decimal.NewFromInt(150)))
	assert.True(t, tr.ReducedRate.Equal(decimal.NewFromInt(135)))
	assert.True(t, tr.ThresholdPrice.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, 10.0, tr.OffsetMinutes)
	assert.Equal(t, 15.0, tr.CutoffMinutes)
}

func TestLoadTariffFromEnv(t *testing.T) {
	t.Setenv("TARIFF_POLICY", "Tiered")
	t.Setenv("TARIFF_FLOOR_PRICE", "800.50")
	t.Setenv("TARIFF_CUTOFF_MINUTES", "20")

	tr, err := LoadTariff()
	require.NoError(t, err)
	assert.Equal(t, pricing.PolicyTiered, tr.Policy)
	assert.Equal(t, "800.5", tr.FloorPrice.String())
	assert.Equal(t, 20.0, tr.CutoffMinutes)
}

func TestLoadTariffRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown policy":  {"TARIFF_POLICY", "per-ball"},
		"bad decimal":     {"TARIFF_BASE_RATE", "abc"},
		"bad float":       {"TARIFF_OFFSET_MINUTES", "ten"},
		"negative rate":   {"TARIFF_REDUCED_RATE", "-1"},
		"negative cutoff": {"TARIFF_CUTOFF_MINUTES", "-5"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadTariff()
			assert.ErrorIs(t, err, pricing.ErrInvalidTariff)
		})
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	c := LoadCacheConfig()
	assert.False(t, c.Enabled)
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
}
