package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/pkg/llm"
)

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// SystemPrompt 系统提示词模板，包含 {{context}} 和 {{question}} 两个槽位。
	SystemPrompt string
}

// Generator 负责答案生成。
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig) *Generator {
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// BuildPrompt 将上下文与问题填入固定模板。
func (g *Generator) BuildPrompt(question, contextText string) string {
	prompt := strings.ReplaceAll(g.config.SystemPrompt, "{{context}}", contextText)
	prompt = strings.ReplaceAll(prompt, "{{question}}", question)
	return prompt
}

// Generate 根据问题和组装好的上下文生成答案。
func (g *Generator) Generate(ctx context.Context, question, contextText string) (*llm.GenerateResponse, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
	}

	prompt := g.BuildPrompt(question, contextText)

	start := time.Now()
	resp, err := g.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		metrics.Get().RecordLLMCall(time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if resp.TokenUsage != nil {
		metrics.Get().RecordLLMCall(time.Since(start), resp.TokenUsage.PromptTokens, resp.TokenUsage.CompletionTokens, nil)
		logger.Infof("LLM answer generated (length: %d, tokens: %d)",
			len(resp.Content), resp.TokenUsage.TotalTokens)
	} else {
		metrics.Get().RecordLLMCall(time.Since(start), 0, 0, nil)
		logger.Infof("LLM answer generated (length: %d)", len(resp.Content))
	}

	return resp, nil
}

// GenerateStream 以流式方式生成答案。
func (g *Generator) GenerateStream(ctx context.Context, question, contextText string) (<-chan llm.StreamChunk, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
	}

	prompt := g.BuildPrompt(question, contextText)

	stream, err := g.chatProvider.GenerateStream(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	return stream, nil
}
