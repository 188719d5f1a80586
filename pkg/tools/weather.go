package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WeatherTool reports current conditions via wttr.in's one-line format.
type WeatherTool struct {
	defaultCity string
	baseURL     string
	client      *http.Client
}

func NewWeatherTool(defaultCity string) *WeatherTool {
	if defaultCity == "" {
		defaultCity = "Bangalore"
	}
	return &WeatherTool{
		defaultCity: defaultCity,
		baseURL:     "https://wttr.in",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WeatherTool) Name() string {
	return "weather"
}

func (t *WeatherTool) Description() string {
	return "Get current weather conditions for a city."
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"city": map[string]interface{}{
				"type":        "string",
				"description": "City name",
			},
		},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	city := t.defaultCity
	if c, ok := args["city"].(string); ok && strings.TrimSpace(c) != "" {
		city = strings.TrimSpace(c)
	}

	reqURL := fmt.Sprintf("%s/%s?format=3", t.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to create request: %v", err)).WithError(err)
	}
	req.Header.Set("User-Agent", "curl/8.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("weather lookup failed: %v", err)).WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to read response: %v", err)).WithError(err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("weather service returned status %d", resp.StatusCode)
		return ErrorResult(err.Error()).WithError(err)
	}

	report := strings.TrimSpace(string(body))
	if report == "" {
		return ErrorResult(fmt.Sprintf("no weather data for %s", city))
	}

	return OKResult(fmt.Sprintf("Current weather: %s", report))
}
