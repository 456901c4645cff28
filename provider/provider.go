package provider

import (
	"context"
	"errors"
)

// 各后端的错误统一翻译成这三类，调度层只认这几个信号
var (
	ErrContentPolicy = errors.New("prompt violates content policy")
	ErrRateLimited   = errors.New("provider rate limited")
	ErrUnavailable   = errors.New("provider unavailable")
)

// Provider 生图后端的统一能力接口
type Provider interface {
	Name() string
	// Generate 生成一张图片并返回原始字节，错误必须是上面三类之一（可带包装）
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Options 各后端的密钥配置
type Options struct {
	ArkAPIKey    string
	GeminiAPIKey string
	OpenAIKey    string
}

// Build 按名字构建可用的后端表，调度时按名选择主备
func Build(opts Options) map[string]Provider {
	return map[string]Provider{
		"doubao": NewArk(opts.ArkAPIKey),
		"gemini": NewGemini(opts.GeminiAPIKey),
		"dalle":  NewOpenAI(opts.OpenAIKey),
	}
}
