package influxdb

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Row is one record of a Flux result.
type Row struct {
	Time   time.Time
	Value  any
	Values map[string]any
}

// Float returns the row's _value as a float64.
func (r Row) Float() (float64, bool) {
	switch v := r.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Query runs a Flux query and collects every record.
func (c *Client) Query(ctx context.Context, flux string) ([]Row, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var rows []Row
	for result.Next() {
		rec := result.Record()
		rows = append(rows, Row{Time: rec.Time(), Value: rec.Value(), Values: rec.Values()})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return rows, nil
}

// RangeQuery describes a filtered read of one field.
type RangeQuery struct {
	Measurement string
	Field       string

	// Tags filters rows by exact tag values.
	Tags map[string]string

	Window time.Duration

	// Aggregate is a Flux aggregate such as "mean" or "last".
	// Empty returns raw rows, newest first, capped by Limit.
	Aggregate string
	Limit     int
}

// Flux renders q against bucket.
func (q RangeQuery) Flux(bucket string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: -%s)\n", fluxDuration(q.Window))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s", fluxString(q.Measurement))
	if q.Field != "" {
		fmt.Fprintf(&b, " and r._field == %s", fluxString(q.Field))
	}
	for _, k := range sortedKeys(q.Tags) {
		fmt.Fprintf(&b, " and r[%s] == %s", fluxString(k), fluxString(q.Tags[k]))
	}
	b.WriteString(")\n")

	if q.Aggregate != "" {
		fmt.Fprintf(&b, "  |> group()\n  |> %s()\n", q.Aggregate)
		return b.String()
	}
	b.WriteString("  |> group()\n  |> sort(columns: [\"_time\"], desc: true)\n")
	if q.Limit > 0 {
		fmt.Fprintf(&b, "  |> limit(n: %d)\n", q.Limit)
	}
	return b.String()
}

// QueryRange runs q against the client's bucket.
func (c *Client) QueryRange(ctx context.Context, q RangeQuery) ([]Row, error) {
	if q.Measurement == "" {
		return nil, fmt.Errorf("%w: measurement is required", ErrQueryFailed)
	}
	if q.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrQueryFailed)
	}
	return c.Query(ctx, q.Flux(c.cfg.Bucket))
}

// fluxString quotes s as a Flux string literal.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "${", `\${`)
	return `"` + r.Replace(s) + `"`
}

// fluxDuration renders d in whole seconds, at least 1s.
func fluxDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10) + "s"
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
