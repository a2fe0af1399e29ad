// In file: cmd/assistant/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/agent"
	"github.com/dileep-u-k/weather-assistant/internal/assistant"
	"github.com/dileep-u-k/weather-assistant/internal/llm"
	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/dileep-u-k/weather-assistant/internal/tools"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:           "weather-assistant",
	Short:         "Conversational weather assistant backed by a ReAct agent",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask <query...>",
	Short: "Answer a single query and print the JSON envelope",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), GetBuildInfo())
	},
}

var sessionFlag string

func init() {
	askCmd.Flags().StringVarP(&sessionFlag, "session", "s", "cli", "Session id used for conversation memory")
	rootCmd.AddCommand(serveCmd, askCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Default().Error("command failed", "error", err)
		os.Exit(1)
	}
}

// runServe is the "Composition Root" for the HTTP service: it loads
// configuration, builds every component and runs the server until a signal arrives.
func runServe(cmd *cobra.Command, _ []string) error {
	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, os.Stdout)
	logging.SetDefault(logger)

	buildInfo := GetBuildInfo()
	logger.Info("starting weather assistant", "version", buildInfo.Version, "commit", buildInfo.GitCommit)

	// 2. INITIALIZE SERVICES
	ctx := logging.With(cmd.Context(), logger)
	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	logger.Info("all services initialized")

	// 3. SETUP AND RUN THE WEB SERVER
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	engine := NewRouter(NewQueryHandler(service), logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return runServerWithGracefulShutdown(ctx, srv)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the envelope.
	logger := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	logging.SetDefault(logger)

	ctx := logging.With(cmd.Context(), logger)
	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := service.Handle(ctx, sessionFlag, strings.Join(args, " "))
	return writeJSON(cmd.OutOrStdout(), resp)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to write response")
	}
	return nil
}

// buildService wires the completion client, tools, agent and session store.
// The returned cleanup releases every connection it opened.
func buildService(ctx context.Context, cfg *AppConfig) (*assistant.Service, func(), error) {
	logger := logging.From(ctx)
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", "error", err)
			}
		}
	}

	client, closeClient, err := initializeLLMClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeClient != nil {
		closers = append(closers, closeClient)
	}

	toolManager := initializeToolManager(ctx, cfg)
	runner := agent.New(client, toolManager, cfg.AgentConfig())

	sessions, closeSessions, err := initializeSessionStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closeSessions != nil {
		closers = append(closers, closeSessions)
	}

	return assistant.NewService(runner, sessions, cfg.Insights), cleanup, nil
}

// initializeLLMClient creates the configured completion client behind a circuit breaker.
func initializeLLMClient(ctx context.Context, cfg *AppConfig) (llm.LLMClient, func() error, error) {
	var (
		client  llm.LLMClient
		closeFn func() error
	)
	switch cfg.LLMProvider {
	case ProviderGemini:
		gemini, err := llm.NewGeminiClient(ctx, cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create gemini client")
		}
		client, closeFn = gemini, gemini.Close
	case ProviderAnthropic:
		anthropic, err := llm.NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMBaseURL)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create anthropic client")
		}
		client = anthropic
	default:
		openai, err := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create completion client")
		}
		client = openai
	}

	logging.From(ctx).Info("completion client initialized", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return llm.NewBreakerClient(cfg.LLMProvider, client, cfg.Breaker), closeFn, nil
}

// initializeToolManager creates and registers all available tools.
func initializeToolManager(ctx context.Context, cfg *AppConfig) *tools.ToolManager {
	manager := tools.NewToolManager()
	manager.Register(tools.NewWeatherTool(cfg.WeatherAPIKey, tools.WithBaseURL(cfg.WeatherBaseURL)))

	if cfg.WeatherAPIKey == "" {
		logging.From(ctx).Warn("OPENWEATHER_API_KEY is not set; weather lookups will report a configuration error")
	}
	logging.From(ctx).Info("tool manager initialized", "tools", manager.ToolCount())
	return manager
}

// initializeSessionStore uses Redis when REDIS_ADDR is set and an in-process store otherwise.
func initializeSessionStore(ctx context.Context, cfg *AppConfig) (assistant.SessionStore, func() error, error) {
	if cfg.RedisAddr == "" {
		logging.From(ctx).Info("session memory kept in process", "ttl", cfg.SessionTTL)
		return assistant.NewMemoryStore(cfg.SessionTTL), nil, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, goerr.Wrap(err, "could not connect to redis", goerr.V("addr", cfg.RedisAddr))
	}

	logging.From(ctx).Info("session memory kept in redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	return assistant.NewRedisStore(rdb, cfg.SessionTTL), rdb.Close, nil
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(ctx context.Context, srv *http.Server) error {
	logger := logging.From(ctx)
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			return goerr.Wrap(err, "listen failed", goerr.V("addr", srv.Addr))
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "server shutdown failed")
	}
	logger.Info("server exited gracefully")
	return nil
}
