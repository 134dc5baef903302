package trafficgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	assert.Len(t, cfg.PlateStates, 6)
	assert.NotEmpty(t, cfg.PlateStates["Illinois"].PlateTypes)
	assert.Empty(t, cfg.PlateStates["Pennsylvania"].PlateTypes)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "no jurisdictions",
			mutate: func(c *Config) { c.PlateStates = nil },
		},
		{
			name: "zero jurisdiction weights",
			mutate: func(c *Config) {
				for name, p := range c.PlateStates {
					p.Weight = 0
					c.PlateStates[name] = p
				}
			},
		},
		{
			name: "missing plate format",
			mutate: func(c *Config) {
				p := c.PlateStates["Ohio"]
				p.Format = ""
				c.PlateStates["Ohio"] = p
			},
		},
		{
			name: "bad jurisdiction code",
			mutate: func(c *Config) {
				p := c.PlateStates["Ohio"]
				p.Abbreviation = "OHIO"
				c.PlateStates["Ohio"] = p
			},
		},
		{
			name:   "empty vehicle types",
			mutate: func(c *Config) { c.VehicleTypes = nil },
		},
		{
			name:   "zero vehicle weights",
			mutate: func(c *Config) { c.VehicleTypes = map[string]float64{"Car": 0} },
		},
		{
			name:   "negative effect weight",
			mutate: func(c *Config) { c.Effects[EffectClear] = -1 },
		},
		{
			// Legacy short names like "snow" are rejected up front so the
			// vocabulary mismatch surfaces at startup, not mid-run.
			name: "unknown effect name",
			mutate: func(c *Config) {
				delete(c.Effects, EffectSnowy)
				c.Effects["snow"] = 0.05
			},
		},
	}

	for _, test := range tests {
		cfg := DefaultConfig()
		test.mutate(cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration, test.name)
	}
}

func TestLoadConfig(t *testing.T) {

	cfg, err := LoadConfig("")
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrConfiguration)

	doc := `{
		"plate_states": {
			"Ontario": {
				"full_name": "Ontario",
				"abbreviation": "ON",
				"weight": 1,
				"format": "AAAA###"
			}
		},
		"vehicle_types": {"Car": 1},
		"effects": {"clear": 1}
	}`

	path := filepath.Join(t.TempDir(), "config.json")

	err = os.WriteFile(path, []byte(doc), 0644)
	assert.NoError(t, err)

	cfg, err = LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "ON", cfg.PlateStates["Ontario"].Abbreviation)
	assert.Equal(t, "AAAA###", cfg.PlateStates["Ontario"].Format)

	bad := `{"plate_states": {}, "vehicle_types": {"Car": 1}, "effects": {"clear": 1}}`

	path = filepath.Join(t.TempDir(), "bad.json")

	err = os.WriteFile(path, []byte(bad), 0644)
	assert.NoError(t, err)

	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}
