// Package agent implements the reasoning loop that lets a hosted completion
// model decide when to call the weather capability.
//
// The model speaks a plain-text ReAct protocol (Thought / Action / Action
// Input / Observation / Final Answer). Every reply is parsed into a Step and
// the loop advances on that tagged value until a final answer arrives or a
// budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/llm"
	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/dileep-u-k/weather-assistant/internal/tools"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxIterations    = 5
	DefaultMaxExecutionTime = 30 * time.Second

	// StoppedMessage is returned when a budget runs out before a final answer.
	StoppedMessage = "Agent stopped due to iteration limit or time limit."

	invalidOutputObservation = "Invalid or incomplete response"
	observationStop          = "\nObservation:"
)

// ErrTagModel marks a loop that ended because the completion model failed.
var ErrTagModel = goerr.NewTag("agent_model")

// StopReason says why a run ended.
type StopReason string

const (
	StopFinalAnswer    StopReason = "final_answer"
	StopIterationLimit StopReason = "iteration_limit"
	StopTimeLimit      StopReason = "time_limit"
	StopFailed         StopReason = "failed"
)

// Turn records one model reply that did not end the loop.
type Turn struct {
	// Log is the raw model reply, replayed verbatim in the scratchpad.
	Log         string
	Action      string
	ActionInput string
	Observation string
}

// Result is the outcome of a run. Output is always set, even when Stop is StopFailed.
type Result struct {
	Output string
	Turns  []Turn
	Stop   StopReason
	Usage  llm.Usage
	Err    error
}

// Config bounds and tunes the loop.
type Config struct {
	Model            string
	Temperature      *float32
	MaxTokens        int
	MaxIterations    int
	MaxExecutionTime time.Duration
}

// Agent runs the ReAct loop against one completion client and tool registry.
// It holds no per-request state and is safe for concurrent use.
type Agent struct {
	client llm.LLMClient
	tools  *tools.ToolManager
	config Config
}

func New(client llm.LLMClient, toolManager *tools.ToolManager, config Config) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.MaxExecutionTime <= 0 {
		config.MaxExecutionTime = DefaultMaxExecutionTime
	}
	return &Agent{
		client: client,
		tools:  toolManager,
		config: config,
	}
}

// Run answers query. It never panics on model output and never returns a raw
// error: failures are reported through Result.Stop and Result.Err with an
// apology in Result.Output.
func (a *Agent) Run(ctx context.Context, query string) *Result {
	logger := logging.From(ctx)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.config.MaxExecutionTime)
	defer cancel()

	result := &Result{}
	defs := a.tools.GetDefinitions()
	genConfig := &llm.GenerationConfig{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		Stop:        []string{observationStop},
	}

	for iteration := 0; iteration < a.config.MaxIterations; iteration++ {
		if time.Since(start) >= a.config.MaxExecutionTime {
			return stopped(result, StopTimeLimit)
		}

		prompt, err := renderPrompt(defs, query, result.Turns)
		if err != nil {
			return failed(result, err)
		}

		gen, err := a.client.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, genConfig)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return stopped(result, StopTimeLimit)
			}
			return failed(result, err)
		}
		result.Usage.Add(gen.Usage)

		switch step := ParseOutput(gen.Content).(type) {
		case FinalAnswer:
			logger.Debug("agent produced final answer", "iteration", iteration+1)
			result.Output = step.Text
			result.Stop = StopFinalAnswer
			return result

		case Action:
			logger.Debug("agent invoking tool", "iteration", iteration+1, "tool", step.Tool, "input", step.Input)
			result.Turns = append(result.Turns, Turn{
				Log:         step.Log,
				Action:      step.Tool,
				ActionInput: step.Input,
				Observation: a.execute(ctx, step),
			})

		case Unparseable:
			logger.Debug("agent output could not be parsed", "iteration", iteration+1, "reason", step.Reason)
			result.Turns = append(result.Turns, Turn{
				Log:         step.Log,
				Observation: invalidOutputObservation,
			})
		}
	}

	return stopped(result, StopIterationLimit)
}

// execute runs the requested tool and returns the observation text.
// Tool failures become observations so the model can recover from them.
func (a *Agent) execute(ctx context.Context, action Action) string {
	observation, err := a.tools.Execute(ctx, action.Tool, action.Input)
	if err == nil {
		return observation
	}
	if errors.Is(err, tools.ErrToolNotFound) {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", action.Tool, strings.Join(a.tools.Names(), ", "))
	}
	logging.From(ctx).Warn("tool execution failed", "tool", action.Tool, "error", err)
	return fmt.Sprintf("Error executing tool %s: %v", action.Tool, err)
}

func stopped(result *Result, reason StopReason) *Result {
	result.Output = StoppedMessage
	result.Stop = reason
	return result
}

func failed(result *Result, err error) *Result {
	result.Output = fmt.Sprintf("I apologize, but I encountered an error while processing your request: %v", err)
	result.Stop = StopFailed
	result.Err = goerr.Wrap(err, "reasoning loop failed", goerr.T(ErrTagModel))
	return result
}
