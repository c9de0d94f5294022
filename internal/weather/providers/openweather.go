package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-proxy/internal/weather"
)

const maxPayloadBytes = 1 << 20

// OpenWeatherProvider implements weather.Fetcher against an
// OpenWeatherMap-compatible current-weather endpoint.
type OpenWeatherProvider struct {
	name     string
	baseURL  string
	keyParam string
	apiKey   string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider calling baseURL with the API key
// passed as the keyParam query parameter.
func NewOpenWeatherProvider(client *http.Client, baseURL, keyParam, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:     "openweathermap",
		baseURL:  baseURL,
		keyParam: keyParam,
		apiKey:   apiKey,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

// SetBackoff overrides the retry policy.
func (p *OpenWeatherProvider) SetBackoff(b BackoffConfig) {
	p.httpCfg.Backoff = b
}

// Name returns the provider identifier used in error messages.
func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch requests the current weather for city.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.UpstreamResponse, error) {
	if p.baseURL == "" {
		return weather.UpstreamResponse{}, fmt.Errorf("openweather base url is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		if p.keyParam != "" {
			values.Set(p.keyParam, p.apiKey)
		}
		values.Set("q", city)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.UpstreamResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return weather.UpstreamResponse{}, fmt.Errorf("read %s response: %w", p.name, err)
	}

	var payload weather.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.UpstreamResponse{}, fmt.Errorf("%w: %v", weather.ErrInvalidPayload, err)
	}

	return weather.UpstreamResponse{
		Raw:     json.RawMessage(body),
		Payload: payload,
	}, nil
}
