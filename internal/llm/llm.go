package llm

import (
	"context"
	"fmt"

	"autofill/internal/config"
)

// maxToolCalls caps the number of tool invocations in one generation so
// agentic calls always terminate.
const maxToolCalls = 3

// Tool is a capability the model may invoke during generation. All
// arguments are strings and required.
type Tool struct {
	Name        string
	Description string
	// Parameters maps argument names to their descriptions.
	Parameters map[string]string
	// Run executes the tool and returns the observation fed back to the
	// model.
	Run func(ctx context.Context, args map[string]string) (string, error)
}

// ToolCall records one observed tool invocation in a generation trace.
// Callers use the trace to attribute answer provenance.
type ToolCall struct {
	Name string
	Args map[string]string
}

// Client is the capability contract for a large language model.
type Client interface {
	// Generate produces text conditioned on a system instruction and a
	// single user prompt.
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)

	// GenerateWithTools exposes the given tools to the model and lets it
	// decide whether to invoke them before finalizing. The returned trace
	// lists every tool call the model made, in order.
	GenerateWithTools(ctx context.Context, systemInstruction, prompt string, tools []Tool) (string, []ToolCall, error)
}

// NewClient creates a Client backed by the configured provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(context.Background(), cfg.Model, cfg.APIKey)
	case "openai":
		return NewOpenAI(cfg.Model, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// findTool looks up a tool by name.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// stringArgs flattens decoded JSON arguments into the string form tools
// accept.
func stringArgs(args map[string]interface{}) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
