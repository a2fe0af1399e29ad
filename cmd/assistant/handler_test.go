package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dileep-u-k/weather-assistant/internal/agent"
	"github.com/dileep-u-k/weather-assistant/internal/api"
	"github.com/dileep-u-k/weather-assistant/internal/assistant"
	"github.com/dileep-u-k/weather-assistant/internal/llm"
	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/dileep-u-k/weather-assistant/internal/tools"
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/gt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoRunner answers with a fixed text and records the dispatched queries.
type echoRunner struct {
	mu      sync.Mutex
	answer  string
	queries []string
}

func (r *echoRunner) Run(_ context.Context, query string) *agent.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return &agent.Result{Output: r.answer, Stop: agent.StopFinalAnswer}
}

func newTestRouter(runner assistant.Runner) *gin.Engine {
	service := assistant.NewService(runner, assistant.NewMemoryStore(0), nil)
	return NewRouter(NewQueryHandler(service), logging.New("error", io.Discard))
}

func postQuery(t *testing.T, engine *gin.Engine, body, sessionID string) (*httptest.ResponseRecorder, api.QueryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp api.QueryResponse
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestRootAndHealth(t *testing.T) {
	engine := newTestRouter(&echoRunner{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains(`"message":"Weather Assistant API is running"`)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, strings.TrimSpace(w.Body.String()), `{"status":"healthy"}`)
	}
}

func TestQueryEmptyIsFailureEnvelope(t *testing.T) {
	engine := newTestRouter(&echoRunner{answer: "unused"})

	w, resp := postQuery(t, engine, `{"query":"   "}`, "")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.False(t, resp.Success)
	gt.Equal(t, resp.Response, "")
	gt.Equal(t, *resp.Error, assistant.EmptyQueryMessage)
	gt.S(t, w.Body.String()).Contains(`"weather_type":null`)
	gt.S(t, w.Body.String()).Contains(`"insights":null`)
}

func TestQueryMalformedBodyIsWrapped(t *testing.T) {
	engine := newTestRouter(&echoRunner{answer: "unused"})

	w, resp := postQuery(t, engine, `{"query":`, "")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.False(t, resp.Success)
	gt.S(t, *resp.Error).Contains("Invalid request")
}

func TestQuerySessionHeader(t *testing.T) {
	runner := &echoRunner{answer: "currently in Paris it is sunny"}
	engine := newTestRouter(runner)

	t.Run("generated when missing", func(t *testing.T) {
		w, resp := postQuery(t, engine, `{"query":"weather in Paris"}`, "")
		gt.True(t, resp.Success)
		gt.NotEqual(t, w.Header().Get(SessionHeader), "")
	})

	t.Run("echoed and used for memory", func(t *testing.T) {
		w, _ := postQuery(t, engine, `{"query":"weather in Paris"}`, "abc")
		gt.Equal(t, w.Header().Get(SessionHeader), "abc")

		_, resp := postQuery(t, engine, `{"query":"and tomorrow?"}`, "abc")
		gt.True(t, resp.Success)
		gt.Equal(t, *resp.WeatherType, assistant.WeatherClear)
		gt.Equal(t, runner.queries[len(runner.queries)-1], "and tomorrow? in Paris")
	})
}

func TestCORS(t *testing.T) {
	engine := newTestRouter(&echoRunner{})

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-session-id")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Credentials"), "true")
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Headers"), "content-type,x-session-id")
	gt.S(t, w.Header().Get("Access-Control-Allow-Methods")).Contains("POST")
}

// reactClient plays a model that looks up the weather once and then answers.
type reactClient struct {
	mu    sync.Mutex
	calls int
}

func (c *reactClient) Generate(_ context.Context, _ []llm.Message, _ *llm.GenerationConfig) (*llm.GenerationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls == 1 {
		return &llm.GenerationResult{Content: "Thought: I should check Tokyo.\nAction: get_weather\nAction Input: Tokyo"}, nil
	}
	return &llm.GenerationResult{Content: "Thought: I now know the final answer\nFinal Answer: Tokyo has clear sky and 22°C."}, nil
}

func TestQueryEndToEnd(t *testing.T) {
	var requestedCity string
	weather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedCity = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Tokyo","sys":{"country":"JP"},"main":{"temp":22,"feels_like":21,"humidity":50},"weather":[{"description":"clear sky"}],"wind":{"speed":2}}`))
	}))
	defer weather.Close()

	manager := tools.NewToolManager()
	manager.Register(tools.NewWeatherTool("key", tools.WithBaseURL(weather.URL)))
	runner := agent.New(llm.NewBreakerClient("test", &reactClient{}, llm.BreakerSettings{}), manager, agent.Config{})
	engine := newTestRouter(runner)

	body, err := json.Marshal(api.QueryRequest{Query: "what's the weather in Tokyo"})
	gt.NoError(t, err)
	w, resp := postQuery(t, engine, string(body), "")

	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, requestedCity, "Tokyo")
	gt.True(t, resp.Success)
	gt.Nil(t, resp.Error)
	gt.Equal(t, *resp.WeatherType, assistant.WeatherClear)
	gt.Equal(t, resp.Insights.Caution, "Stay hydrated")
	gt.S(t, resp.Response).Contains("clear sky")
}
