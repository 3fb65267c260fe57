package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is a Client backed by the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client for the named model.
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate produces text conditioned on a system instruction and prompt.
func (g *Gemini) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	gm := g.generativeModel(systemInstruction, nil)

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return responseText(resp), nil
}

// GenerateWithTools runs a chat session in which the model may call the
// given tools. The loop is bounded by maxToolCalls.
func (g *Gemini) GenerateWithTools(ctx context.Context, systemInstruction, prompt string, tools []Tool) (string, []ToolCall, error) {
	gm := g.generativeModel(systemInstruction, tools)
	session := gm.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	var trace []ToolCall
	for i := 0; i < maxToolCalls; i++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return responseText(resp), trace, nil
		}

		var observations []genai.Part
		for _, fc := range calls {
			tool, ok := findTool(tools, fc.Name)
			if !ok {
				return "", trace, fmt.Errorf("model requested unknown tool: %s", fc.Name)
			}

			args := stringArgs(fc.Args)
			trace = append(trace, ToolCall{Name: fc.Name, Args: args})

			out, err := tool.Run(ctx, args)
			if err != nil {
				// Feed the failure back as an observation so the model can
				// still answer from what it has.
				out = fmt.Sprintf("tool error: %v", err)
			}
			observations = append(observations, genai.FunctionResponse{
				Name:     fc.Name,
				Response: map[string]interface{}{"content": out},
			})
		}

		resp, err = session.SendMessage(ctx, observations...)
		if err != nil {
			return "", trace, fmt.Errorf("gemini generation failed: %w", err)
		}
	}

	if text := responseText(resp); text != "" {
		return text, trace, nil
	}
	return "", trace, fmt.Errorf("tool call budget (%d) exhausted without a final answer", maxToolCalls)
}

// generativeModel builds a per-request model handle with the system
// instruction and optional tool declarations applied.
func (g *Gemini) generativeModel(systemInstruction string, tools []Tool) *genai.GenerativeModel {
	gm := g.client.GenerativeModel(g.model)
	if systemInstruction != "" {
		gm.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemInstruction)},
		}
	}

	if len(tools) > 0 {
		var declarations []*genai.FunctionDeclaration
		for _, t := range tools {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(t.Parameters)),
			}
			for name, desc := range t.Parameters {
				schema.Properties[name] = &genai.Schema{
					Type:        genai.TypeString,
					Description: desc,
				}
				schema.Required = append(schema.Required, name)
			}
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			})
		}
		gm.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return gm
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// functionCalls collects the function call parts of the first candidate.
func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

var _ Client = (*Gemini)(nil)
