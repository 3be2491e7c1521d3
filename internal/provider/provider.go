package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrProvider 后端服务不可用（鉴权失败、限流、网络错误等），本地不可恢复
var ErrProvider = errors.New("LLM 服务调用失败")

// ErrMalformedOutput 后端返回的内容不是合法的结构化数据（常见于输出被截断），
// 与其他错误区分开，因为它有独立的恢复策略（加大输出预算重试）
var ErrMalformedOutput = errors.New("LLM 输出不是合法的 JSON")

// Request 一次文本生成请求
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int     // 输出 token 预算
	Temperature float32 // 0 表示使用后端默认值
}

// Response 生成结果及用量元数据
type Response struct {
	Text         string
	Backend      string // 形如 "openai:gpt-4o"
	InputTokens  int
	OutputTokens int
}

// Provider 文本生成后端的能力接口，构造后无状态，可在多个 worker 间共享
type Provider interface {
	// Generate 普通文本生成
	Generate(ctx context.Context, req Request) (*Response, error)
	// GenerateStructured 生成并解析为结构化对象；解析失败时返回
	// 可与 ErrMalformedOutput 匹配的错误，同时返回响应以便统计用量
	GenerateStructured(ctx context.Context, req Request, out any) (*Response, error)
	// WithModel 返回绑定到另一模型的新实例，凭据共享
	WithModel(model string) Provider
	// Name 后端标识
	Name() string
}

// stripCodeFence 去除 LLM 常见的 markdown 代码块包装
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// decodeStructured 清理并解析结构化输出，失败归类为 ErrMalformedOutput
func decodeStructured(content string, out any) error {
	cleaned := stripCodeFence(content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// structuredSystem 在系统提示词后追加 JSON 约束
func structuredSystem(system string) string {
	return strings.TrimSpace(system + "\n\nRespond with valid JSON only. No markdown, no explanation.")
}
