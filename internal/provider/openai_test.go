package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

// mockChatCompleter 记录请求并返回预设响应的假客户端
type mockChatCompleter struct {
	lastReq openai.ChatCompletionRequest
	resp    openai.ChatCompletionResponse
	err     error
}

func (m *mockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
		Usage: openai.Usage{PromptTokens: 80, CompletionTokens: 20},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	t.Run("正常生成", func(t *testing.T) {
		mock := &mockChatCompleter{resp: chatResponse("the answer")}
		p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}

		resp, err := p.Generate(context.Background(), Request{
			Prompt: "question", System: "helper", MaxTokens: 256,
		})

		assert.NoError(t, err)
		assert.Equal(t, "the answer", resp.Text)
		assert.Equal(t, "openai:gpt-4o-mini", resp.Backend)
		assert.Equal(t, 80, resp.InputTokens)
		assert.Equal(t, 20, resp.OutputTokens)

		assert.Len(t, mock.lastReq.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, mock.lastReq.Messages[0].Role)
		assert.Equal(t, 256, mock.lastReq.MaxTokens)
	})

	t.Run("网络错误归类为后端错误", func(t *testing.T) {
		mock := &mockChatCompleter{err: fmt.Errorf("connection refused")}
		p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}

		_, err := p.Generate(context.Background(), Request{Prompt: "q"})

		assert.True(t, errors.Is(err, ErrProvider))
	})

	t.Run("空结果归类为后端错误", func(t *testing.T) {
		mock := &mockChatCompleter{resp: openai.ChatCompletionResponse{}}
		p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}

		_, err := p.Generate(context.Background(), Request{Prompt: "q"})

		assert.True(t, errors.Is(err, ErrProvider))
	})
}

func TestOpenAIGenerateStructured(t *testing.T) {
	t.Run("解析结构化输出", func(t *testing.T) {
		mock := &mockChatCompleter{resp: chatResponse("```json\n{\"n\": 7}\n```")}
		p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}

		var out map[string]int
		resp, err := p.GenerateStructured(context.Background(), Request{Prompt: "q"}, &out)

		assert.NoError(t, err)
		assert.Equal(t, 7, out["n"])
		assert.NotNil(t, resp)
	})

	t.Run("解析失败仍返回响应以便统计用量", func(t *testing.T) {
		mock := &mockChatCompleter{resp: chatResponse("half a json {")}
		p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}

		var out map[string]int
		resp, err := p.GenerateStructured(context.Background(), Request{Prompt: "q"}, &out)

		assert.True(t, errors.Is(err, ErrMalformedOutput))
		assert.NotNil(t, resp)
		assert.Equal(t, 80, resp.InputTokens)
	})
}

func TestWithModel(t *testing.T) {
	mock := &mockChatCompleter{}
	p := &OpenAIProvider{client: mock, model: "gpt-4o-mini"}
	q := p.WithModel("gpt-4o")

	assert.Equal(t, "openai:gpt-4o", q.Name())
	assert.Equal(t, "openai:gpt-4o-mini", p.Name())
}
