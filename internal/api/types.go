// In file: internal/api/types.go

// Package api holds the JSON contract of the HTTP surface.
package api

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// Insights is the fixed-shape advice block attached to a successful answer.
type Insights struct {
	Temperature string `json:"temperature" yaml:"temperature"`
	Rain        string `json:"rain" yaml:"rain"`
	Advice      string `json:"advice" yaml:"advice"`
	Clothing    string `json:"clothing" yaml:"clothing"`
	Caution     string `json:"caution" yaml:"caution"`
}

// QueryResponse is the envelope returned by POST /query. It is always sent
// with HTTP 200; failure is signalled by Success=false and Error.
type QueryResponse struct {
	Response    string    `json:"response"`
	WeatherType *string   `json:"weather_type"`
	Insights    *Insights `json:"insights"`
	Success     bool      `json:"success"`
	Error       *string   `json:"error"`
}

// NewSuccessResponse builds the envelope for an answered query.
func NewSuccessResponse(text, weatherType string, insights Insights) QueryResponse {
	return QueryResponse{
		Response:    text,
		WeatherType: &weatherType,
		Insights:    &insights,
		Success:     true,
	}
}

// NewErrorResponse builds the envelope for a rejected or failed query.
func NewErrorResponse(message string) QueryResponse {
	return QueryResponse{
		Success: false,
		Error:   &message,
	}
}

// MessageResponse is the body of GET /.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
