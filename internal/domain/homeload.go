package domain

import (
	"context"
	"time"
)

// ConsumptionForecast predicts household load for upcoming hours.
type ConsumptionForecast struct {
	PredictedWatts map[time.Time]Watts `json:"predicted_watts"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// DefaultHoursAhead is the horizon used when a caller does not pick one.
const DefaultHoursAhead = 3

// HomeLoadForecastProvider predicts household consumption.
type HomeLoadForecastProvider interface {
	HomeConsumptionForecast(ctx context.Context, hoursAhead int) (*ConsumptionForecast, error)
}
