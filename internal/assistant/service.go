// Package assistant turns a free-text weather question into the structured
// response envelope: it validates the query, applies per-session memory,
// runs the reasoning agent and derives the category and insight fields.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/dileep-u-k/weather-assistant/internal/agent"
	"github.com/dileep-u-k/weather-assistant/internal/api"
	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/m-mizutani/goerr/v2"
)

// EmptyQueryMessage is the error text returned for blank queries.
const EmptyQueryMessage = "Query cannot be empty"

// Tags for the fault categories the service distinguishes at its boundary.
var (
	ErrTagValidation = goerr.NewTag("validation")
	ErrTagInternal   = goerr.NewTag("internal")
)

// Runner is the reasoning loop as seen by the service.
type Runner interface {
	Run(ctx context.Context, query string) *agent.Result
}

// Service handles queries. It is safe for concurrent use as long as its
// SessionStore is.
type Service struct {
	runner   Runner
	sessions SessionStore
	insights InsightTable
}

func NewService(runner Runner, sessions SessionStore, insights InsightTable) *Service {
	if sessions == nil {
		sessions = NewMemoryStore(DefaultSessionTTL)
	}
	if insights == nil {
		insights = DefaultInsightTable()
	}
	return &Service{
		runner:   runner,
		sessions: sessions,
		insights: insights,
	}
}

// Handle answers query within the conversation identified by sessionID.
// It always returns a well-formed envelope; nothing it does can panic past it.
func (s *Service) Handle(ctx context.Context, sessionID, query string) (resp api.QueryResponse) {
	logger := logging.From(ctx).With("session_id", sessionID)

	defer func() {
		if r := recover(); r != nil {
			err := goerr.New(fmt.Sprint(r), goerr.T(ErrTagInternal))
			logger.Error("query handling panicked", "error", err)
			resp = api.NewErrorResponse(fmt.Sprint(r))
		}
	}()

	if err := validateQuery(query); err != nil {
		logger.Info("rejected query", "error", err)
		return api.NewErrorResponse(EmptyQueryMessage)
	}

	dispatched := s.withRememberedCity(ctx, sessionID, query)
	logger.Info("dispatching query", "query", dispatched)

	result := s.runner.Run(ctx, dispatched)
	if result.Err != nil {
		logger.Error("reasoning loop failed", "error", result.Err)
	}

	weatherType := Classify(result.Output)
	s.rememberCity(ctx, sessionID, result.Output)

	logger.Info("query answered",
		"stop", result.Stop,
		"turns", len(result.Turns),
		"weather_type", weatherType,
		"total_tokens", result.Usage.TotalTokens,
	)
	return api.NewSuccessResponse(result.Output, weatherType, s.insights.For(weatherType))
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return goerr.New(EmptyQueryMessage, goerr.T(ErrTagValidation))
	}
	return nil
}

// withRememberedCity appends " in <city>" when the session remembers a city
// and the query does not mention weather.
func (s *Service) withRememberedCity(ctx context.Context, sessionID, query string) string {
	if sessionID == "" {
		return query
	}
	city, err := s.sessions.LastCity(ctx, sessionID)
	if err != nil {
		logging.From(ctx).Warn("failed to load session memory", "session_id", sessionID, "error", err)
		return query
	}
	if city == "" || strings.Contains(strings.ToLower(query), "weather") {
		return query
	}
	return fmt.Sprintf("%s in %s", query, city)
}

func (s *Service) rememberCity(ctx context.Context, sessionID, answer string) {
	if sessionID == "" {
		return
	}
	city := ExtractCity(answer)
	if city == "" {
		return
	}
	if err := s.sessions.SetLastCity(ctx, sessionID, city); err != nil {
		logging.From(ctx).Warn("failed to update session memory", "session_id", sessionID, "error", err)
	}
}
