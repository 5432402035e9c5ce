package domain

import (
	"context"
	"time"
)

// ForecastPowerPoint is a predicted power value at an instant.
type ForecastPowerPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Power     Watts     `json:"power"`
}

// ForecastInterval is a span of predicted production.
type ForecastInterval struct {
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	Energy          *WattHours           `json:"energy,omitempty"`
	EnergyRemaining *WattHours           `json:"energy_remaining,omitempty"`
	PowerPoints     []ForecastPowerPoint `json:"power_points,omitempty"`
}

// Duration returns the length of the interval.
func (i ForecastInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// AvgPower returns the mean of the interval's power points, or 0 without points.
func (i ForecastInterval) AvgPower() Watts {
	if len(i.PowerPoints) == 0 {
		return 0
	}
	var total Watts
	for _, p := range i.PowerPoints {
		total += p.Power
	}
	return total / Watts(len(i.PowerPoints))
}

// ForecastData is a solar production forecast.
type ForecastData struct {
	Intervals   []ForecastInterval `json:"intervals"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// PowerAt returns the average power of the interval containing t.
func (f *ForecastData) PowerAt(t time.Time) (Watts, bool) {
	for _, iv := range f.Intervals {
		if !t.Before(iv.Start) && t.Before(iv.End) {
			return iv.AvgPower(), true
		}
	}
	return 0, false
}

// ForecastProvider predicts solar production.
type ForecastProvider interface {
	SolarForecast(ctx context.Context) (*ForecastData, error)
}
