package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fachebot/chat-unwrapped/internal/provider"
)

// mockCall 一次脚本化的后端响应
type mockCall struct {
	text string
	err  error
}

// mockProvider 按脚本依次返回预设响应的假后端
type mockProvider struct {
	mu    sync.Mutex
	calls []mockCall
	count int
}

func (m *mockProvider) next() (mockCall, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.count
	m.count++
	if idx >= len(m.calls) {
		return mockCall{err: fmt.Errorf("%w: 脚本耗尽", provider.ErrProvider)}, idx
	}
	return m.calls[idx], idx
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *mockProvider) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	call, _ := m.next()
	if call.err != nil {
		return nil, call.err
	}
	return &provider.Response{Text: call.text, Backend: m.Name(), InputTokens: 10, OutputTokens: 5}, nil
}

func (m *mockProvider) GenerateStructured(ctx context.Context, req provider.Request, out any) (*provider.Response, error) {
	call, _ := m.next()
	if call.err != nil {
		return nil, call.err
	}
	resp := &provider.Response{Text: call.text, Backend: m.Name(), InputTokens: 10, OutputTokens: 5}
	if err := json.Unmarshal([]byte(call.text), out); err != nil {
		return resp, fmt.Errorf("%w: %v", provider.ErrMalformedOutput, err)
	}
	return resp, nil
}

func (m *mockProvider) WithModel(model string) provider.Provider { return m }

func (m *mockProvider) Name() string { return "mock:test" }
