package svc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/proxy"

	"github.com/fachebot/chat-unwrapped/internal/archive"
	"github.com/fachebot/chat-unwrapped/internal/config"
	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/provider"
)

// ServiceContext 汇集全部运行时依赖，供各入口共享
type ServiceContext struct {
	Config            *config.Config
	EvidenceProvider  provider.Provider // nil 表示无可用后端（离线模式）
	SynthesisProvider provider.Provider
	Archive           *archive.Store // nil 表示未启用归档
}

// NewServiceContext 根据配置构建服务上下文。
// 缺少 API Key 不是错误：对应 provider 为 nil，流水线进入离线模式。
func NewServiceContext(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	svcCtx := &ServiceContext{Config: cfg}

	var transport *http.Transport
	if cfg.Sock5Proxy.Enable {
		auth := fmt.Sprintf("%s:%d", cfg.Sock5Proxy.Host, cfg.Sock5Proxy.Port)
		dialer, err := proxy.SOCKS5("tcp", auth, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("创建 SOCKS5 代理失败: %w", err)
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
		logger.Infof("[ServiceContext] 已启用 SOCKS5 代理: %s", auth)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		key := cfg.OpenAIKey()
		if key == "" {
			logger.Warnf("[ServiceContext] 未配置 OpenAI API Key, 进入离线模式")
			break
		}
		p := provider.NewOpenAI(cfg.OpenAI.BaseURL, key, cfg.OpenAI.Model, transport)
		svcCtx.EvidenceProvider = p
		svcCtx.SynthesisProvider = p.WithModel(cfg.OpenAI.SynthesisModel)
	case config.ProviderGemini:
		key := cfg.GeminiKey()
		if key == "" {
			logger.Warnf("[ServiceContext] 未配置 Gemini API Key, 进入离线模式")
			break
		}
		p, err := provider.NewGemini(ctx, key, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
		}
		svcCtx.EvidenceProvider = p
		svcCtx.SynthesisProvider = p.WithModel(cfg.Gemini.SynthesisModel)
	}

	if cfg.Archive.Enable {
		store, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, err
		}
		svcCtx.Archive = store
	}

	return svcCtx, nil
}

// Close 释放持有的资源
func (s *ServiceContext) Close() {
	if s.Archive != nil {
		s.Archive.Close()
	}
}
