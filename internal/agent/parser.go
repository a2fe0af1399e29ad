package agent

import (
	"regexp"
	"strings"
)

const finalAnswerMarker = "Final Answer:"

var (
	actionPattern      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyPattern  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	actionInputPattern = regexp.MustCompile(`(?s)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
)

// Step is the parsed shape of one model reply: Action, FinalAnswer or Unparseable.
type Step interface {
	step()
}

// Action asks the loop to run Tool with Input.
type Action struct {
	Tool  string
	Input string
	Log   string
}

// FinalAnswer ends the loop with Text.
type FinalAnswer struct {
	Text string
	Log  string
}

// Unparseable is a reply matching neither shape. The loop feeds it back to
// the model as an observation instead of failing.
type Unparseable struct {
	Reason string
	Log    string
}

func (Action) step()      {}
func (FinalAnswer) step() {}
func (Unparseable) step() {}

// ParseOutput classifies a raw model reply.
func ParseOutput(text string) Step {
	log := text
	includesAnswer := strings.Contains(text, finalAnswerMarker)

	if match := actionPattern.FindStringSubmatch(text); match != nil {
		if includesAnswer {
			return Unparseable{
				Reason: "Parsing LLM output produced both a final answer and a parse-able action",
				Log:    log,
			}
		}
		return Action{
			Tool:  strings.TrimSpace(match[1]),
			Input: cleanActionInput(match[2]),
			Log:   log,
		}
	}

	if includesAnswer {
		parts := strings.Split(text, finalAnswerMarker)
		return FinalAnswer{Text: strings.TrimSpace(parts[len(parts)-1]), Log: log}
	}

	switch {
	case !actionOnlyPattern.MatchString(text):
		return Unparseable{Reason: "Invalid Format: Missing 'Action:' after 'Thought:'", Log: log}
	case !actionInputPattern.MatchString(text):
		return Unparseable{Reason: "Invalid Format: Missing 'Action Input:' after 'Action:'", Log: log}
	default:
		return Unparseable{Reason: "Could not parse LLM output", Log: log}
	}
}

// cleanActionInput drops anything the model invented after the input line
// and the quoting models like to add.
func cleanActionInput(input string) string {
	if idx := strings.Index(input, "\nObservation"); idx >= 0 {
		input = input[:idx]
	}
	input = strings.Trim(input, " ")
	input = strings.TrimSpace(input)
	return strings.Trim(input, "\"")
}
