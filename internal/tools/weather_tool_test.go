package tools_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/dileep-u-k/weather-assistant/internal/tools"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

const tokyoPayload = `{
	"name": "Tokyo",
	"sys": {"country": "JP"},
	"main": {"temp": 22.5, "feels_like": 21.8, "humidity": 40},
	"weather": [{"description": "clear sky"}],
	"wind": {"speed": 3.1}
}`

func newProvider(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestWeatherLookupSuccess(t *testing.T) {
	var gotQuery, gotUnits, gotKey string
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUnits = r.URL.Query().Get("units")
		gotKey = r.URL.Query().Get("appid")
		fmt.Fprint(w, tokyoPayload)
	})

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
	result := wt.Lookup(context.Background(), " \"Tokyo\" ")

	gt.Equal(t, gotQuery, "Tokyo")
	gt.Equal(t, gotUnits, "metric")
	gt.Equal(t, gotKey, "secret")
	gt.Equal(t, result, "Weather in Tokyo, JP:\n"+
		"Temperature: 22.5°C (feels like 21.8°C)\n"+
		"Conditions: Clear sky\n"+
		"Humidity: 40%\n"+
		"Wind Speed: 3.1 m/s")
}

func TestWeatherLookupMissingKey(t *testing.T) {
	called := false
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	wt := tools.NewWeatherTool("", tools.WithBaseURL(srv.URL))
	result := wt.Lookup(context.Background(), "Paris")

	gt.False(t, called)
	gt.S(t, result).Contains("Weather API key not configured")
}

func TestWeatherLookupNotFound(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
	})

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
	result := wt.Lookup(context.Background(), "Atlantis")

	gt.S(t, result).Contains("not found")
	gt.S(t, result).Contains("Atlantis")
}

func TestWeatherLookupBadStatus(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	wt := tools.NewWeatherTool("wrong", tools.WithBaseURL(srv.URL))
	result := wt.Lookup(context.Background(), "Paris")

	gt.Equal(t, result, "Error: Unable to fetch weather data. Status code: 401")
}

func TestWeatherLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL), tools.WithTimeout(50*time.Millisecond))
	result := wt.Lookup(context.Background(), "Paris")

	gt.S(t, result).Contains("Network error")
}

func TestWeatherLookupNetworkErrorHidesKey(t *testing.T) {
	release := make(chan struct{})
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	var logs bytes.Buffer
	ctx := logging.With(context.Background(), logging.New("debug", &logs))

	wt := tools.NewWeatherTool("SUPERSECRETKEY", tools.WithBaseURL(srv.URL), tools.WithTimeout(50*time.Millisecond))
	result := wt.Lookup(ctx, "Paris")

	gt.S(t, result).Contains("Network error")
	gt.S(t, result).NotContains("SUPERSECRETKEY")
	gt.S(t, result).NotContains("appid")
	gt.S(t, logs.String()).NotContains("SUPERSECRETKEY")
}

func TestWeatherLookupKeepsNumberLiterals(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"Oslo","sys":{"country":"NO"},"main":{"temp":22.0,"feels_like":-3,"humidity":81},"weather":[{"description":"LIGHT SNOW"}],"wind":{"speed":4.10}}`)
	})

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
	gt.Equal(t, wt.Lookup(context.Background(), "Oslo"), "Weather in Oslo, NO:\n"+
		"Temperature: 22.0°C (feels like -3°C)\n"+
		"Conditions: Light snow\n"+
		"Humidity: 81%\n"+
		"Wind Speed: 4.1 m/s")
}

func TestWeatherLookupMissingFields(t *testing.T) {
	testCases := map[string]string{
		"no name":    `{"sys":{"country":"FR"},"main":{"temp":1,"feels_like":1,"humidity":1},"weather":[{"description":"mist"}],"wind":{"speed":1}}`,
		"no country": `{"name":"Paris","sys":{},"main":{"temp":1,"feels_like":1,"humidity":1},"weather":[{"description":"mist"}],"wind":{"speed":1}}`,
		"no temp":    `{"name":"Paris","sys":{"country":"FR"},"main":{"feels_like":1,"humidity":1},"weather":[{"description":"mist"}],"wind":{"speed":1}}`,
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})

			wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
			result := wt.Lookup(context.Background(), "Paris")
			gt.S(t, result).Contains("An unexpected error occurred")
			gt.S(t, result).NotContains("Weather in")
		})
	}
}

func TestWeatherLookupMalformedPayload(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "Paris", "weather": []}`)
	})

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
	result := wt.Lookup(context.Background(), "Paris")

	gt.S(t, result).Contains("An unexpected error occurred")
}

func TestWeatherLookupEmptyCity(t *testing.T) {
	wt := tools.NewWeatherTool("secret", tools.WithBaseURL("http://127.0.0.1:0"))
	gt.Equal(t, wt.Lookup(context.Background(), `  ""  `), "Error: City name cannot be empty.")
}

func TestWeatherFetchTagsErrors(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	wt := tools.NewWeatherTool("secret", tools.WithBaseURL(srv.URL))
	_, err := wt.Fetch(context.Background(), "Paris")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, tools.ErrTagUpstreamStatus))

	var statusErr *tools.StatusError
	gt.True(t, errors.As(err, &statusErr))
	gt.Equal(t, statusErr.Code, http.StatusServiceUnavailable)
}

func TestNormalizeCity(t *testing.T) {
	testCases := map[string]string{
		"Tokyo":       "Tokyo",
		" 'London' ":  "London",
		"\"Paris\"":   "Paris",
		"New York.":   "New York",
		"`Berlin`\n":  "Berlin",
		"   ":         "",
	}
	for input, want := range testCases {
		gt.Equal(t, tools.NormalizeCity(input), want)
	}
}
