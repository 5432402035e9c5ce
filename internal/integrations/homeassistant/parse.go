package homeassistant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

func parseNumber(state string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	return v, nil
}

// ParsePower converts a state to watts. unit is W or kW; anything else is
// taken as W.
func ParsePower(state, unit string) (domain.Watts, error) {
	v, err := parseNumber(state)
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(unit, "kw") {
		v *= 1000
	}
	return domain.Watts(v), nil
}

// ParseEnergy converts a state to watt-hours. unit is Wh or kWh; anything
// else is taken as Wh.
func ParseEnergy(state, unit string) (domain.WattHours, error) {
	v, err := parseNumber(state)
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(unit, "kwh") {
		v *= 1000
	}
	return domain.WattHours(v), nil
}

// ParsePercentage converts a state to a percentage clamped to [0, 100].
func ParsePercentage(state string) (domain.Percentage, error) {
	v, err := parseNumber(state)
	if err != nil {
		return 0, err
	}
	return domain.Percentage(min(100, max(0, v))), nil
}
