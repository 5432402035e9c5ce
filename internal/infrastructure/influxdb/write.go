package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues a point on the batched write API. It never blocks;
// failures reach the OnError callback. Dropped silently when disconnected.
//
//	client.WritePoint("miner_hashrate",
//	    map[string]string{"miner_id": "m-1"},
//	    map[string]any{"value": 92.4, "unit": "TH/s"},
//	    time.Now())
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// WritePointSync writes one point and waits for the server to accept it.
func (c *Client) WritePointSync(ctx context.Context, measurement string, tags map[string]string, fields map[string]any, ts time.Time) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.blocking.WritePoint(ctx, write.NewPoint(measurement, tags, fields, ts)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, measurement, err)
	}
	return nil
}
