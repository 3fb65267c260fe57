package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI is a Client backed by the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client for the named model.
func NewOpenAI(model, apiKey string) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	client := openai.NewClientWithConfig(config)
	return &OpenAI{client: client, model: model}, nil
}

// Generate produces text conditioned on a system instruction and prompt.
func (o *OpenAI) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: initialMessages(systemInstruction, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateWithTools runs a chat completion in which the model may call the
// given tools. The loop is bounded by maxToolCalls.
func (o *OpenAI) GenerateWithTools(ctx context.Context, systemInstruction, prompt string, tools []Tool) (string, []ToolCall, error) {
	messages := initialMessages(systemInstruction, prompt)

	var openaiTools []openai.Tool
	for _, t := range tools {
		properties := make(map[string]interface{}, len(t.Parameters))
		required := make([]string, 0, len(t.Parameters))
		for name, desc := range t.Parameters {
			properties[name] = map[string]interface{}{
				"type":        "string",
				"description": desc,
			}
			required = append(required, name)
		}
		openaiTools = append(openaiTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}

	var trace []ToolCall
	for i := 0; i <= maxToolCalls; i++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    openaiTools,
		})
		if err != nil {
			return "", trace, fmt.Errorf("failed to create chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", trace, fmt.Errorf("no completion choices returned")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || i == maxToolCalls {
			return msg.Content, trace, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			tool, ok := findTool(tools, tc.Function.Name)
			if !ok {
				return "", trace, fmt.Errorf("model requested unknown tool: %s", tc.Function.Name)
			}

			var rawArgs map[string]interface{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &rawArgs); err != nil {
				return "", trace, fmt.Errorf("failed to decode tool arguments: %w", err)
			}

			args := stringArgs(rawArgs)
			trace = append(trace, ToolCall{Name: tc.Function.Name, Args: args})

			out, err := tool.Run(ctx, args)
			if err != nil {
				out = fmt.Sprintf("tool error: %v", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", trace, fmt.Errorf("tool call budget (%d) exhausted without a final answer", maxToolCalls)
}

func initialMessages(systemInstruction, prompt string) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if systemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

var _ Client = (*OpenAI)(nil)
