package sensor_simulator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

// Moisture moves in whole percent per tick.
const (
	gainPerTick  = 5
	decayPerTick = 2
	defaultSeed  = 50

	SoilGridsURL  = "https://rest.isric.org"
	soilGridsPath = "/soilgrids/v2.0/properties/query"
)

// DataGenerator holds the simulated soil moisture of one field.
type DataGenerator struct {
	mu       sync.Mutex
	moisture int
}

// NewDataGenerator starts at seed percent; out-of-range seeds are clamped.
func NewDataGenerator(seed int) *DataGenerator {
	return &DataGenerator{moisture: clampPct(seed)}
}

// Next advances one tick: watering raises moisture, otherwise the soil dries.
func (g *DataGenerator) Next(pump entities.PumpState) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pump == entities.PumpOn {
		g.moisture += gainPerTick
	} else {
		g.moisture -= decayPerTick
	}
	g.moisture = clampPct(g.moisture)
	return g.moisture
}

func (g *DataGenerator) Moisture() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moisture
}

type soilGridsResponse struct {
	Properties struct {
		Layers []struct {
			Name   string `json:"name"`
			Depths []struct {
				Label  string              `json:"label"`
				Values map[string]*float64 `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

// SeedFromSoilGrids replaces the seed with the topsoil water content at lat/lon.
// It is meant for a single call at startup; on error the current seed is kept.
func (g *DataGenerator) SeedFromSoilGrids(ctx context.Context, client *resty.Client, lat, lon float64) error {
	var out soilGridsResponse
	res, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":      strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":      strconv.FormatFloat(lon, 'f', -1, 64),
			"property": "wv0010",
			"depth":    "0-5cm",
			"value":    "mean",
		}).
		SetResult(&out).
		Get(soilGridsPath)
	if err != nil {
		return fmt.Errorf("soilgrids: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("soilgrids: HTTP %d", res.StatusCode())
	}

	for _, l := range out.Properties.Layers {
		for _, d := range l.Depths {
			for _, k := range []string{"mean", "Q0.5"} {
				if v := d.Values[k]; v != nil {
					g.mu.Lock()
					g.moisture = clampPct(int(math.Round(volumetricFraction(*v) * 100)))
					g.mu.Unlock()
					return nil
				}
			}
		}
	}
	return fmt.Errorf("soilgrids: no water content at %v,%v", lat, lon)
}

// volumetricFraction maps SoilGrids water content to [0,1]. The API reports
// most wv layers in thousandths of cm3/cm3.
func volumetricFraction(x float64) float64 {
	if x > 1.5 {
		x /= 1000
	}
	return math.Max(0, math.Min(1, x))
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
