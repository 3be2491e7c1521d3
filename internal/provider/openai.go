package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter go-openai 客户端接口，便于测试注入 mock
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider 兼容 OpenAI API 的后端适配器
type OpenAIProvider struct {
	client chatCompleter
	model  string
}

// NewOpenAI 创建 OpenAI 适配器；transport 可为 nil（直连），非 nil 时走代理
func NewOpenAI(baseURL, apiKey, model string, transport *http.Transport) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if transport != nil {
		cfg.HTTPClient = &http.Client{Transport: transport}
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai:" + p.model
}

// WithModel 返回绑定到另一模型的新实例，共享底层客户端
func (p *OpenAIProvider) WithModel(model string) Provider {
	return &OpenAIProvider{client: p.client, model: model}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		apiReq.Temperature = req.Temperature
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: 返回空结果", ErrProvider)
	}

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		Backend:      p.Name(),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, req Request, out any) (*Response, error) {
	req.System = structuredSystem(req.System)
	if req.Temperature == 0 {
		req.Temperature = 0.3 // 低温度让 JSON 输出更稳定
	}

	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := decodeStructured(resp.Text, out); err != nil {
		return resp, err
	}
	return resp, nil
}
