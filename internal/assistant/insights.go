package assistant

import "github.com/dileep-u-k/weather-assistant/internal/api"

// InsightTable maps a weather category to its advice block. The values are
// static per category and do not look at measured temperature or humidity.
type InsightTable map[string]api.Insights

var baseInsights = api.Insights{
	Temperature: "Moderate",
	Rain:        "Low chance",
	Advice:      "No special advice",
	Clothing:    "Light cotton clothing recommended",
	Caution:     "No major caution",
}

// DefaultInsightTable returns the built-in table.
func DefaultInsightTable() InsightTable {
	rain := baseInsights
	rain.Rain = "Rain expected"
	rain.Advice = "Carry an umbrella"

	clearSky := baseInsights
	clearSky.Caution = "Stay hydrated"

	return InsightTable{
		WeatherClear:   clearSky,
		WeatherRain:    rain,
		WeatherCloudy:  baseInsights,
		WeatherSmoke:   baseInsights,
		WeatherSnow:    baseInsights,
		WeatherDefault: baseInsights,
	}
}

// For returns the block for category, falling back to the "default" entry.
func (t InsightTable) For(category string) api.Insights {
	if insights, ok := t[category]; ok {
		return insights
	}
	if insights, ok := t[WeatherDefault]; ok {
		return insights
	}
	return baseInsights
}

// Merge returns a copy of t with overrides applied field by field. Empty
// override fields keep the value already in t.
func (t InsightTable) Merge(overrides InsightTable) InsightTable {
	merged := make(InsightTable, len(t)+len(overrides))
	for category, insights := range t {
		merged[category] = insights
	}
	for category, override := range overrides {
		current := merged.For(category)
		if override.Temperature != "" {
			current.Temperature = override.Temperature
		}
		if override.Rain != "" {
			current.Rain = override.Rain
		}
		if override.Advice != "" {
			current.Advice = override.Advice
		}
		if override.Clothing != "" {
			current.Clothing = override.Clothing
		}
		if override.Caution != "" {
			current.Caution = override.Caution
		}
		merged[category] = current
	}
	return merged
}
