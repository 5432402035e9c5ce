package influxdb

import "errors"

// InfluxDB errors.
//
//	if errors.Is(err, influxdb.ErrNotConnected) {
//	    // reconnect through the registry
//	}
var (
	// ErrNotConnected is returned after Close or before a successful Connect.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed is returned when the server cannot be reached or is unhealthy.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed is returned when a blocking write fails.
	// Batched writes report failures through the OnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrQueryFailed is returned when a Flux query fails or returns malformed data.
	ErrQueryFailed = errors.New("influxdb: query failed")

	// ErrNoData is returned when a query matches no rows.
	ErrNoData = errors.New("influxdb: no data")

	// ErrInvalidConfig is returned for missing connection settings.
	ErrInvalidConfig = errors.New("influxdb: invalid configuration")
)
