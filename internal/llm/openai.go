package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// CompatProvider implements Provider against the chat completions endpoint
// of a local OpenAI-compatible server such as llama.cpp server, LM Studio
// or vLLM.
type CompatProvider struct {
	client *openai.Client
	model  string
}

// NewCompatProvider creates a provider for the server at baseURL. Most local
// servers ignore apiKey.
func NewCompatProvider(baseURL, model, apiKey string) (*CompatProvider, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (p *CompatProvider) Name() string {
	return "openai"
}

func (p *CompatProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Seed:      req.Seed,
	}
	if req.Temperature != nil {
		// go-openai omits a zero temperature; a tiny positive value keeps
		// sampling effectively greedy.
		apiReq.Temperature = float32(*req.Temperature)
		if apiReq.Temperature == 0 {
			apiReq.Temperature = 1e-6
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}
