// Package influxdb wraps the InfluxDB v2 client for influxdb external
// services: batched and blocking writes plus Flux queries.
//
//	client, err := influxdb.Connect(ctx, influxdb.Config{
//	    URL: "http://influx:8086", Token: token, Org: "home", Bucket: "mining",
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	rows, err := client.QueryRange(ctx, influxdb.RangeQuery{
//	    Measurement: "miner_hashrate",
//	    Field:       "value",
//	    Tags:        map[string]string{"miner_id": "m-1"},
//	    Window:      10 * time.Minute,
//	    Aggregate:   "mean",
//	})
package influxdb
