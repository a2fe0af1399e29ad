// In file: internal/tools/weather_tool.go
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/m-mizutani/goerr/v2"
)

// --- Weather Tool Implementation ---

const (
	WeatherToolName = "get_weather"

	DefaultOpenWeatherURL = "http://api.openweathermap.org/data/2.5/weather"
	defaultWeatherTimeout = 10 * time.Second
)

// Tags classifying why a lookup failed. Lookup turns each into its own message.
var (
	ErrTagConfig         = goerr.NewTag("weather_config")
	ErrTagInput          = goerr.NewTag("weather_input")
	ErrTagNotFound       = goerr.NewTag("weather_not_found")
	ErrTagUpstreamStatus = goerr.NewTag("weather_upstream_status")
	ErrTagNetwork        = goerr.NewTag("weather_network")
)

// StatusError carries a non-success HTTP status returned by the provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather provider returned status %d", e.Code)
}

// WeatherSnapshot is the subset of the provider payload the assistant uses.
// It only lives for the duration of one lookup.
// Numbers keep the provider's JSON literal so "22.0" and "40" render as sent.
type WeatherSnapshot struct {
	City        string
	Country     string
	Temperature json.Number
	FeelsLike   json.Number
	Humidity    json.Number
	Description string
	WindSpeed   json.Number
}

// WeatherTool looks up current conditions on OpenWeatherMap.
// One lookup is exactly one outbound request: no retries, no caching.
type WeatherTool struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Statically verify that WeatherTool implements the ToolExecutor interface.
var _ ToolExecutor = (*WeatherTool)(nil)

// WeatherOption customises a WeatherTool.
type WeatherOption func(*WeatherTool)

// WithBaseURL points the tool at a different current-conditions endpoint.
func WithBaseURL(baseURL string) WeatherOption {
	return func(wt *WeatherTool) {
		if baseURL != "" {
			wt.baseURL = baseURL
		}
	}
}

// WithTimeout overrides the per-request network timeout.
func WithTimeout(timeout time.Duration) WeatherOption {
	return func(wt *WeatherTool) {
		if timeout > 0 {
			wt.httpClient.Timeout = timeout
		}
	}
}

// NewWeatherTool creates a new WeatherTool. An empty apiKey is accepted: the
// tool then answers every lookup with a configuration error message.
func NewWeatherTool(apiKey string, opts ...WeatherOption) *WeatherTool {
	wt := &WeatherTool{
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		httpClient: &http.Client{
			Timeout: defaultWeatherTimeout,
		},
	}
	for _, opt := range opts {
		opt(wt)
	}
	return wt
}

// Definition describes the tool to the LLM.
func (wt *WeatherTool) Definition() Tool {
	return NewTool(
		WeatherToolName,
		"Useful for getting current weather information for a city. "+
			"Input should be the name of a city. "+
			"Returns temperature, conditions, humidity, and wind speed.",
	)
}

// Execute implements ToolExecutor. Lookup never fails, so neither does Execute.
func (wt *WeatherTool) Execute(ctx context.Context, input string) (string, error) {
	return wt.Lookup(ctx, input), nil
}

// Lookup fetches current conditions for city and renders them as text.
// Every failure is rendered as an "Error: ..." string instead of being returned.
func (wt *WeatherTool) Lookup(ctx context.Context, city string) string {
	city = NormalizeCity(city)

	snapshot, err := wt.Fetch(ctx, city)
	if err != nil {
		logging.From(ctx).Warn("weather lookup failed", "city", city, "error", err)
		return describeLookupError(city, err)
	}
	return FormatSnapshot(snapshot)
}

// Fetch performs the provider call and maps the payload to a WeatherSnapshot.
// Errors are tagged with one of the ErrTag* values.
func (wt *WeatherTool) Fetch(ctx context.Context, city string) (*WeatherSnapshot, error) {
	if wt.apiKey == "" {
		return nil, goerr.New("weather API key is not configured", goerr.T(ErrTagConfig))
	}
	if city == "" {
		return nil, goerr.New("city name is empty", goerr.T(ErrTagInput))
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", wt.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wt.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(withoutURL(err), "failed to create weather API request", goerr.V("city", city))
	}
	req.Header.Set("User-Agent", "Weather-Assistant/1.0")

	resp, err := wt.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(withoutURL(err), "failed to call weather API", goerr.V("city", city), goerr.T(ErrTagNetwork))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, goerr.Wrap(&StatusError{Code: resp.StatusCode}, "city not found", goerr.V("city", city), goerr.T(ErrTagNotFound))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.Wrap(&StatusError{Code: resp.StatusCode}, "weather API returned non-success status", goerr.V("city", city), goerr.T(ErrTagUpstreamStatus))
	}

	var payload struct {
		Name *string `json:"name"`
		Sys  struct {
			Country *string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp      json.Number `json:"temp"`
			FeelsLike json.Number `json:"feels_like"`
			Humidity  json.Number `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed json.Number `json:"speed"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, goerr.Wrap(err, "failed to parse weather API response", goerr.V("city", city))
	}
	if missing := missingFields(payload.Name, payload.Sys.Country,
		payload.Main.Temp, payload.Main.FeelsLike, payload.Main.Humidity, payload.Wind.Speed); missing {
		return nil, goerr.New("weather API response is missing fields", goerr.V("city", city))
	}
	if len(payload.Weather) == 0 {
		return nil, goerr.New("weather API response has no conditions", goerr.V("city", city))
	}

	return &WeatherSnapshot{
		City:        *payload.Name,
		Country:     *payload.Sys.Country,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		Description: payload.Weather[0].Description,
		WindSpeed:   payload.Wind.Speed,
	}, nil
}

// FormatSnapshot renders a snapshot as the multi-line summary fed to the model.
func FormatSnapshot(s *WeatherSnapshot) string {
	return fmt.Sprintf(
		"Weather in %s, %s:\nTemperature: %s°C (feels like %s°C)\nConditions: %s\nHumidity: %s%%\nWind Speed: %s m/s",
		s.City, s.Country,
		formatNumber(s.Temperature), formatNumber(s.FeelsLike),
		capitalize(s.Description),
		formatNumber(s.Humidity),
		formatNumber(s.WindSpeed),
	)
}

// NormalizeCity strips the decoration models tend to put around an action
// input: whitespace, quotes and a trailing period.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	city = strings.Trim(city, "\"'`")
	city = strings.TrimSuffix(city, ".")
	return strings.TrimSpace(city)
}

func describeLookupError(city string, err error) string {
	switch {
	case goerr.HasTag(err, ErrTagConfig):
		return "Error: Weather API key not configured. Please set OPENWEATHER_API_KEY environment variable."
	case goerr.HasTag(err, ErrTagInput):
		return "Error: City name cannot be empty."
	case goerr.HasTag(err, ErrTagNotFound):
		return fmt.Sprintf("Error: City '%s' not found. Please check the city name and try again.", city)
	case goerr.HasTag(err, ErrTagUpstreamStatus):
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return fmt.Sprintf("Error: Unable to fetch weather data. Status code: %d", statusErr.Code)
		}
		return "Error: Unable to fetch weather data."
	case goerr.HasTag(err, ErrTagNetwork):
		return fmt.Sprintf("Error: Network error occurred while fetching weather data: %v", rootCause(err))
	default:
		return fmt.Sprintf("Error: An unexpected error occurred: %v", rootCause(err))
	}
}

// withoutURL unwraps a *url.Error, whose text embeds the request URL and with
// it the appid key.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// rootCause drops the goerr wrapping message so the text names the real failure.
func rootCause(err error) error {
	if cause := errors.Unwrap(err); cause != nil {
		return cause
	}
	return err
}

func missingFields(name, country *string, numbers ...json.Number) bool {
	if name == nil || country == nil {
		return true
	}
	for _, n := range numbers {
		if n == "" {
			return true
		}
	}
	return false
}

// formatNumber prints integer literals as is and floats with at least one
// decimal, so 22 stays "22" and 22.0 stays "22.0".
func formatNumber(n json.Number) string {
	raw := n.String()
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	v, err := n.Float64()
	if err != nil {
		return raw
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
