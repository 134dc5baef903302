package trafficgen

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the static distribution tables: jurisdiction profiles,
// vehicle types and image effects. Loaded once at process start and
// validated before any sampling happens.
type Config struct {
	PlateStates  map[string]PlateStateProfile `json:"plate_states"`
	VehicleTypes map[string]float64           `json:"vehicle_types"`
	Effects      map[string]float64           `json:"effects"`
}

// DefaultConfig returns the stock tables: six northeastern/midwestern
// jurisdictions with Illinois carrying plate types, the standard vehicle
// mix and a mostly-clear effect distribution.
func DefaultConfig() *Config {
	return &Config{
		PlateStates: map[string]PlateStateProfile{
			"Illinois": {
				FullName:     "Illinois",
				Abbreviation: "IL",
				Weight:       0.1,
				Format:       "A######",
				PlateTypes:   []string{"Passenger", "Commercial", "Firefighter", "Doctor"},
			},
			"Pennsylvania": {
				FullName:     "Pennsylvania",
				Abbreviation: "PA",
				Weight:       0.6,
				Format:       "AAA####",
			},
			"New Jersey": {
				FullName:     "New Jersey",
				Abbreviation: "NJ",
				Weight:       0.1,
				Format:       "A##AAA",
			},
			"New York": {
				FullName:     "New York",
				Abbreviation: "NY",
				Weight:       0.05,
				Format:       "AAA####",
			},
			"Maryland": {
				FullName:     "Maryland",
				Abbreviation: "MD",
				Weight:       0.05,
				Format:       "AAA###",
			},
			"Ohio": {
				FullName:     "Ohio",
				Abbreviation: "OH",
				Weight:       0.1,
				Format:       "AAA####",
			},
		},
		VehicleTypes: map[string]float64{
			"Car":             0.6,
			"SUV":             0.2,
			"Small Truck":     0.1,
			"Tractor Trailer": 0.1,
		},
		Effects: map[string]float64{
			EffectClear:  0.83,
			EffectDirty:  0.02,
			EffectBlurry: 0.05,
			EffectSnowy:  0.05,
			EffectRainy:  0.05,
		},
	}
}

// LoadConfig reads a JSON config document from path, or returns the
// defaults when path is empty.
func LoadConfig(path string) (*Config, error) {

	if path == "" {
		return DefaultConfig(), nil
	}

	body, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("%w: read config %s: %v", ErrConfiguration, path, err)
	}

	var cfg Config

	err = json.Unmarshal(body, &cfg)

	if err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %v", ErrConfiguration, path, err)
	}

	err = cfg.Validate()

	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every table for emptiness, zero total weight and, for the
// effect table, names the engine does not recognize.
func (c *Config) Validate() error {

	if len(c.PlateStates) == 0 {
		return fmt.Errorf("%w: no jurisdiction profiles", ErrConfiguration)
	}

	stateTotal := 0.0

	for name, p := range c.PlateStates {
		if p.FullName == "" {
			return fmt.Errorf("%w: jurisdiction %q has no full name", ErrConfiguration, name)
		}
		if len(p.Abbreviation) != 2 {
			return fmt.Errorf("%w: jurisdiction %q has code %q, want 2 letters", ErrConfiguration, name, p.Abbreviation)
		}
		if p.Format == "" {
			return fmt.Errorf("%w: jurisdiction %q has no plate format", ErrConfiguration, name)
		}
		stateTotal += p.Weight
	}

	if stateTotal <= 0 {
		return fmt.Errorf("%w: jurisdiction weights sum to zero", ErrConfiguration)
	}

	err := validateWeights("vehicle type", c.VehicleTypes)

	if err != nil {
		return err
	}

	err = validateWeights("effect", c.Effects)

	if err != nil {
		return err
	}

	for name := range c.Effects {
		if !KnownEffect(name) {
			return fmt.Errorf("%w: effect distribution names %q, engine knows clear, blurry, dirty, rainy, snowy", ErrConfiguration, name)
		}
	}

	return nil
}

func validateWeights(table string, weights map[string]float64) error {

	if len(weights) == 0 {
		return fmt.Errorf("%w: empty %s table", ErrConfiguration, table)
	}

	total := 0.0

	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative %s weight for %q", ErrConfiguration, table, name)
		}
		total += w
	}

	if total <= 0 {
		return fmt.Errorf("%w: %s weights sum to zero", ErrConfiguration, table)
	}

	return nil
}
