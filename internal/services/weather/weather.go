// Package weather looks up current conditions from Open-Meteo.
package weather

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/fallback"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/upstream"
)

const DefaultBaseURL = "https://api.open-meteo.com"

// Weather is the subset of a forecast the decision engine uses.
type Weather struct {
	Temperature     float64 `json:"temperature"`
	RainProbability int     `json:"rain_probability"`
	WindSpeed       float64 `json:"wind_speed"`
	IsRaining       bool    `json:"is_raining"`
}

// Fallback is served whenever the live lookup fails.
var Fallback = Weather{Temperature: 25, RainProbability: 0, WindSpeed: 5, IsRaining: false}

// WMO weather codes counted as active rain: rain, showers, thunderstorm.
var rainCodes = map[int]struct{}{
	61: {}, 63: {}, 65: {},
	80: {}, 81: {}, 82: {},
	95: {}, 96: {}, 99: {},
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
	} `json:"hourly"`
}

type Client struct {
	up     *upstream.Upstream
	logger *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, bs upstream.BreakerSettings, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		up:     upstream.New("weather", baseURL, timeout, bs),
		logger: logger,
	}
}

// Current never fails: on any error it returns Fallback tagged as degraded.
func (c *Client) Current(ctx context.Context, lat, lon float64) fallback.Outcome[Weather] {
	w, err := c.fetch(ctx, lat, lon)
	if err != nil {
		metrics.UpstreamFallbacks.WithLabelValues("weather").Inc()
		c.logger.Warn("weather lookup failed, using fallback",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return fallback.Degraded(Fallback, err)
	}
	return fallback.Live(w)
}

// Ready reports whether the breaker currently lets calls through.
func (c *Client) Ready() error {
	if st := c.up.State(); st == gobreaker.StateOpen {
		return fmt.Errorf("weather breaker %s", st)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (Weather, error) {
	var fr forecastResponse
	err := c.up.GetJSON(ctx, "/v1/forecast", map[string]string{
		"latitude":      strconv.FormatFloat(lat, 'f', -1, 64),
		"longitude":     strconv.FormatFloat(lon, 'f', -1, 64),
		"current":       "temperature_2m,precipitation,rain,weather_code,wind_speed_10m",
		"hourly":        "precipitation_probability,weather_code",
		"forecast_days": "1",
	}, &fr)
	if err != nil {
		return Weather{}, err
	}

	_, raining := rainCodes[fr.Current.WeatherCode]
	return Weather{
		Temperature:     fr.Current.Temperature,
		RainProbability: maxProbability(fr.Hourly.PrecipitationProbability),
		WindSpeed:       fr.Current.WindSpeed,
		IsRaining:       raining,
	}, nil
}

// maxProbability is the highest hourly value of the day; nulls are ignored, none yields 0.
func maxProbability(hourly []*float64) int {
	best := 0.0
	for _, p := range hourly {
		if p != nil && *p > best {
			best = *p
		}
	}
	return int(math.Round(best))
}
