package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// DecisionRecord is one past live decision as returned to the dashboard.
type DecisionRecord struct {
	DeviceID    string  `json:"device_id,omitempty"`
	Action      string  `json:"action"`
	Pump        string  `json:"pump"`
	TotalLiters float64 `json:"total_liters"`
	Time        string  `json:"time"` // RFC3339
}

type historyParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseHistory(r *http.Request, defMin, defLim, defTOms int) historyParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return historyParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildDecisionFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q)
  |> filter(fn: (r) => r._field == "action" or r._field == "pump" or r._field == "total_liters")
  |> pivot(rowKey: ["_time", "device_id"], columnKey: ["_field"], valueColumn: "_value")
  |> keep(columns: ["_time", "device_id", "action", "pump", "total_liters"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
`, bucket, minutes, measurement, TypeDecision, limit)
}

// NewDecisionHistoryHandler serves GET /api/events/decisions?minutes=1440&limit=20.
// Without a query API, or when the query fails, it answers an empty list and
// sets X-Error.
func NewDecisionHistoryHandler(q api.QueryAPI, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := parseHistory(r, 1440, 20, 2000)
		w.Header().Set("Content-Type", "application/json")
		if q == nil {
			w.Header().Set("X-Error", "history-disabled")
			_, _ = w.Write([]byte("[]"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		res, err := q.Query(ctx, buildDecisionFlux(bucket, p.Minutes, p.Limit))
		if err != nil {
			w.Header().Set("X-Error", "influx-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		defer res.Close()

		out := make([]DecisionRecord, 0, p.Limit)
		for res.Next() {
			rec := res.Record()
			out = append(out, DecisionRecord{
				DeviceID:    asString(rec.ValueByKey("device_id")),
				Action:      asString(rec.ValueByKey("action")),
				Pump:        asString(rec.ValueByKey("pump")),
				TotalLiters: asFloat(rec.ValueByKey("total_liters")),
				Time:        rec.Time().UTC().Format(time.RFC3339),
			})
		}
		if res.Err() != nil {
			w.Header().Set("X-Error", "influx-iter-error")
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
