// Package estimate holds the effort lookup tables shared by task billing and
// retainer projection.
package estimate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/rpggio/agencyops/internal/errs"
)

var (
	// ErrInvalidEnergy indicates an energy value outside 1-8.
	ErrInvalidEnergy = errs.Validation("energy estimate must be between 1 and 8")
	// ErrInvalidMysteryFactor indicates an unknown mystery factor.
	ErrInvalidMysteryFactor = errs.Validation("invalid mystery factor")
)

// Energy is an ordinal effort estimate from 1 (15 minutes) to 8 (four days).
type Energy uint8

const (
	MinEnergy Energy = 1
	MaxEnergy Energy = 8
)

var energyMinutes = [...]int{0, 15, 30, 60, 120, 240, 480, 960, 1920}

// ParseEnergy validates n as an energy estimate.
func ParseEnergy(n int64) (Energy, error) {
	if n < int64(MinEnergy) || n > int64(MaxEnergy) {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidEnergy, n)
	}
	return Energy(n), nil
}

// Valid reports whether e is inside the closed range.
func (e Energy) Valid() bool { return e >= MinEnergy && e <= MaxEnergy }

// Minutes returns the base duration for e.
func (e Energy) Minutes() int {
	if !e.Valid() {
		return 0
	}
	return energyMinutes[e]
}

func (e *Energy) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case float64:
		n = int64(v)
	default:
		return fmt.Errorf("scan energy: unsupported type %T", src)
	}
	parsed, err := ParseEnergy(n)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e Energy) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, ErrInvalidEnergy
	}
	return int64(e), nil
}

func (e *Energy) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidEnergy
	}
	parsed, err := ParseEnergy(n)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MysteryFactor is a qualitative uncertainty tag applied to a base estimate.
type MysteryFactor string

const (
	MysteryNone        MysteryFactor = "none"
	MysteryAverage     MysteryFactor = "average"
	MysterySignificant MysteryFactor = "significant"
	MysteryNoIdea      MysteryFactor = "no_idea"
)

var multipliers = map[MysteryFactor]float64{
	MysteryNone:        1.0,
	MysteryAverage:     1.4,
	MysterySignificant: 1.75,
	MysteryNoIdea:      2.5,
}

// ParseMysteryFactor validates s as a mystery factor.
func ParseMysteryFactor(s string) (MysteryFactor, error) {
	m := MysteryFactor(s)
	if _, ok := multipliers[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMysteryFactor, s)
	}
	return m, nil
}

// Multiplier returns the uncertainty multiplier. Unknown values count as none.
func (m MysteryFactor) Multiplier() float64 {
	if v, ok := multipliers[m]; ok {
		return v
	}
	return 1.0
}

func (m *MysteryFactor) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan mystery factor: unsupported type %T", src)
	}
	parsed, err := ParseMysteryFactor(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m MysteryFactor) Value() (driver.Value, error) {
	if m == "" {
		return string(MysteryNone), nil
	}
	if _, ok := multipliers[m]; !ok {
		return nil, ErrInvalidMysteryFactor
	}
	return string(m), nil
}

// UnmarshalJSON accepts the known factors. An empty string leaves the
// factor unset.
func (m *MysteryFactor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidMysteryFactor
	}
	if s == "" {
		*m = ""
		return nil
	}
	parsed, err := ParseMysteryFactor(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Range is the estimated duration span for a task.
type Range struct {
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

// ForTask returns the estimate range. Tasks without energy estimate to zero.
func ForTask(energy *Energy, mystery MysteryFactor) Range {
	if energy == nil || !energy.Valid() {
		return Range{}
	}
	base := energy.Minutes()
	return Range{
		MinMinutes: base,
		MaxMinutes: int(math.Round(float64(base) * mystery.Multiplier())),
	}
}

// MaxMinutes returns the upper bound of the estimate range.
func MaxMinutes(energy *Energy, mystery MysteryFactor) int {
	return ForTask(energy, mystery).MaxMinutes
}
