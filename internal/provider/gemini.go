package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiModels genai 客户端接口，便于测试注入 mock
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider Google Gemini 后端适配器
type GeminiProvider struct {
	models geminiModels
	model  string
}

// NewGemini 创建 Gemini 适配器
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: 缺少 Gemini API Key", ErrProvider)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return &GeminiProvider{models: client.Models, model: model}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini:" + p.model
}

// WithModel 返回绑定到另一模型的新实例，共享底层客户端
func (p *GeminiProvider) WithModel(model string) Provider {
	return &GeminiProvider{models: p.models, model: model}
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}

	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: 返回空结果", ErrProvider)
	}

	result := &Response{Text: text, Backend: p.Name()}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

func (p *GeminiProvider) GenerateStructured(ctx context.Context, req Request, out any) (*Response, error) {
	req.System = structuredSystem(req.System)
	if req.Temperature == 0 {
		req.Temperature = 0.3
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
