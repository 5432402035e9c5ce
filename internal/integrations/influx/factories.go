package influx

import (
	"context"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// ServiceFactory builds and connects a Service (external_service/influxdb).
func ServiceFactory(ctx context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.InfluxDBServiceConfig](req, nil)
	if err != nil {
		return nil, err
	}
	svc := NewService(cfg, req.Logger)
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// TrackerFactory builds a Tracker (performance_tracker/influxdb).
func TrackerFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, adapter.DefaultInfluxTrackerConfig)
	if err != nil {
		return nil, err
	}
	store, err := adapter.ServiceOf[Store](req)
	if err != nil {
		return nil, err
	}
	return NewTracker(store, cfg, req.Logger), nil
}
