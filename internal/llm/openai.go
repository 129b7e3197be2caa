package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model  openai.ChatModel
	client *openai.Client
}

const (
	defaultChatTimeout     = 30 * time.Second
	defaultStreamTimeout   = 2 * time.Minute
	defaultChatTemperature = 0.3
)

var errNilClient = errors.New("nil openai client")

// NewOpenAIClient builds a client with defaults against api.openai.com.
// SDK retries are disabled; a failed call surfaces immediately.
func NewOpenAIClient(apiKey string, model openai.ChatModel, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	cli := openai.NewClient(opts...)
	return &OpenAIClient{
		model:  model,
		client: &cli,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.client == nil {
		return "", errNilClient
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultChatTimeout)
	defer cancel()
	resp, err := c.client.Chat.Completions.New(reqCtx, c.params(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		if c == nil || c.client == nil {
			send(ctx, out, Chunk{Err: errNilClient})
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, defaultStreamTimeout)
		defer cancel()

		stream := c.client.Chat.Completions.NewStreaming(reqCtx, c.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !send(ctx, out, Chunk{Text: delta}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, out, Chunk{Err: fmt.Errorf("openai stream: %w", err)})
		}
	}()
	return out
}

// CallTools exposes each ToolSpec as a function taking a single "input"
// string and returns the calls the model chose.
func (c *OpenAIClient) CallTools(ctx context.Context, req ToolRequest) (ToolResponse, error) {
	if c == nil || c.client == nil {
		return ToolResponse{}, errNilClient
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultChatTimeout)
	defer cancel()

	params := c.params(Request{System: req.System, Input: req.Input})
	params.Tools = buildTools(req.Tools)
	resp, err := c.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return ToolResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return ToolResponse{}, fmt.Errorf("openai: no choices returned")
	}
	msg := resp.Choices[0].Message
	out := ToolResponse{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		var args struct {
			Input string `json:"input"`
		}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return ToolResponse{}, fmt.Errorf("openai: malformed arguments for %s: %w", tc.Function.Name, err)
			}
		}
		out.Calls = append(out.Calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: args.Input})
	}
	return out, nil
}

func (c *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(req.System, req.Input),
		Temperature: openai.Float(defaultChatTemperature),
	}
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

func buildTools(specs []ToolSpec) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"input": map[string]any{
						"type":        "string",
						"description": "The German text the tool should process.",
					},
				},
				"required": []string{"input"},
			},
		}))
	}
	return tools
}
