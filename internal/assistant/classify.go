package assistant

import "strings"

// Weather categories derived from the answer text.
const (
	WeatherClear   = "clear"
	WeatherRain    = "rain"
	WeatherCloudy  = "cloudy"
	WeatherSmoke   = "smoke"
	WeatherSnow    = "snow"
	WeatherDefault = "default"
)

// weatherMarkers is checked in order; the first category with a matching
// marker wins, so "clear" beats "rain" when an answer mentions both.
var weatherMarkers = []struct {
	category string
	markers  []string
}{
	{WeatherClear, []string{"clear", "sunny"}},
	{WeatherRain, []string{"rain", "drizzle", "shower"}},
	{WeatherCloudy, []string{"cloud", "overcast"}},
	{WeatherSmoke, []string{"smoke", "haze", "mist"}},
	{WeatherSnow, []string{"snow"}},
}

// Classify maps free answer text to a coarse weather category by
// case-insensitive substring search.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range weatherMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lower, marker) {
				return entry.category
			}
		}
	}
	return WeatherDefault
}
