package agent

import (
	"strings"
	"text/template"

	"github.com/dileep-u-k/weather-assistant/internal/tools"
	"github.com/m-mizutani/goerr/v2"
)

const promptTemplate = `You are a helpful weather assistant. Your job is to help users get weather information for cities.

You have access to the following tools:

{{range .Tools}}{{.Name}}: {{.Description}}
{{end}}
Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{{.ToolNames}}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Important guidelines:
- If the user asks about weather in a city, use the {{.WeatherTool}} tool
- Extract the city name from the user's question
- Provide a natural, conversational response based on the weather data
- If the user's question is not about weather, politely inform them that you're a weather assistant

Begin!

Question: {{.Question}}
Thought: {{.Scratchpad}}`

var parsedPrompt = template.Must(template.New("react").Parse(promptTemplate))

type promptData struct {
	Tools       []tools.Tool
	ToolNames   string
	WeatherTool string
	Question    string
	Scratchpad  string
}

// renderPrompt builds the full transcript sent to the model on each turn.
func renderPrompt(defs []tools.Tool, question string, turns []Turn) (string, error) {
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}

	var sb strings.Builder
	err := parsedPrompt.Execute(&sb, promptData{
		Tools:       defs,
		ToolNames:   strings.Join(names, ", "),
		WeatherTool: tools.WeatherToolName,
		Question:    question,
		Scratchpad:  renderScratchpad(turns),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to render agent prompt")
	}
	return sb.String(), nil
}

// renderScratchpad replays earlier turns as the model wrote them, each
// followed by its observation and a fresh "Thought:" prefix.
func renderScratchpad(turns []Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Log)
		sb.WriteString("\nObservation: ")
		sb.WriteString(turn.Observation)
		sb.WriteString("\nThought: ")
	}
	return sb.String()
}
