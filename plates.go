package trafficgen

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	plateLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	plateDigits  = "0123456789"
)

// PlateStateProfile describes one issuing jurisdiction: its display name,
// two-letter code, sampling weight, plate format pattern and, optionally,
// the plate-type categories it issues. Format patterns use 'A' for a random
// letter, '#' for a random digit; any other character is copied literally.
type PlateStateProfile struct {
	FullName     string   `json:"full_name"`
	Abbreviation string   `json:"abbreviation"`
	Weight       float64  `json:"weight"`
	Format       string   `json:"format"`
	PlateTypes   []string `json:"plate_types,omitempty"`
}

// PlateSampler draws jurisdiction profiles and matching plate numbers.
type PlateSampler struct {
	profiles map[string]PlateStateProfile
	weights  map[string]float64
	rng      *rand.Rand
}

func NewPlateSampler(profiles map[string]PlateStateProfile, rng *rand.Rand) (*PlateSampler, error) {

	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no jurisdiction profiles", ErrConfiguration)
	}

	weights := make(map[string]float64, len(profiles))
	total := 0.0

	for name, p := range profiles {
		if p.Format == "" {
			return nil, fmt.Errorf("%w: jurisdiction %q has no plate format", ErrConfiguration, name)
		}
		weights[name] = p.Weight
		total += p.Weight
	}

	if total <= 0 {
		return nil, fmt.Errorf("%w: jurisdiction weights sum to zero", ErrConfiguration)
	}

	s := &PlateSampler{
		profiles: profiles,
		weights:  weights,
		rng:      rng,
	}

	return s, nil
}

// SampleState selects one profile via weighted random choice.
func (s *PlateSampler) SampleState() (PlateStateProfile, error) {

	name, err := ChooseWeighted(s.rng, s.weights)

	if err != nil {
		return PlateStateProfile{}, err
	}

	return s.profiles[name], nil
}

// SamplePlateNumber generates a plate number matching format, one character
// per placeholder.
func (s *PlateSampler) SamplePlateNumber(format string) string {

	var b strings.Builder
	b.Grow(len(format))

	for _, c := range format {
		switch c {
		case 'A':
			b.WriteByte(plateLetters[s.rng.Intn(len(plateLetters))])
		case '#':
			b.WriteByte(plateDigits[s.rng.Intn(len(plateDigits))])
		default:
			b.WriteRune(c)
		}
	}

	return b.String()
}

// SamplePlateType returns a uniformly chosen plate type for profiles that
// define one, and nil for profiles that do not.
func (s *PlateSampler) SamplePlateType(profile PlateStateProfile) *string {

	if len(profile.PlateTypes) == 0 {
		return nil
	}

	t := profile.PlateTypes[s.rng.Intn(len(profile.PlateTypes))]
	return &t
}
