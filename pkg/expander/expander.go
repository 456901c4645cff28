package expander

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goaway "github.com/TwiN/go-away"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"imagen/models"
)

// 输入校验与扩写失败的错误分类，controller 按类返回状态码
var (
	ErrPromptTooLong  = errors.New("prompt is too long")
	ErrProfanity      = errors.New("profanity detected in prompt")
	ErrRetryExhausted = errors.New("prompt expansion retries exhausted")
	ErrUpstream       = errors.New("prompt expansion upstream error")
)

const maxPromptLen = 600

// 初次调用之外允许的重试次数
const maxRetries = 3

const systemPrompt = `You are a prompt engineering assistant with a focus on optimizing prompts for generating high-quality images. You will be given a user prompt, and you must return JSON with three prompts: the original user prompt, an enhanced prompt, and a super-enhanced prompt. The enhanced prompt should include every word of the original prompt and not exceed 15-17 words. The super-enhanced prompt should also include every word of the original prompt and have 25-30 words. Remember to only return valid JSON, no more or less than three prompts. Your suggestions should increase the original prompt's specificity and detail to generate vivid and engaging images. The structure should be as follows:
{
    "Prompts": [
        {"Prompt1": ""},
        {"Prompt2": ""},
        {"Prompt3": ""}
    ]
}`

const exampleUser = "A majestic waterfall in the forest."

const exampleAssistant = `{
    "Prompts": [
        {"Prompt1": "A majestic waterfall in the forest."},
        {"Prompt2": "A majestic waterfall cascading down rocks, surrounded by lush forest."},
        {"Prompt3": "A majestic waterfall in the forest, cascading down rocks into a clear pool, surrounded by thick, lush trees under a bright sky."}
    ]
}`

// ChatClient 抽出 go-openai 客户端的最小接口，便于测试替换
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Expander 把单条提示词扩写成固定 3 条变体
type Expander struct {
	client ChatClient
	model  string
}

func New(client ChatClient, model string) *Expander {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Expander{client: client, model: model}
}

// Expand 校验输入后调用文本模型扩写，结构不合法时整体重试
func (e *Expander) Expand(ctx context.Context, prompt string) ([]string, error) {
	if len(prompt) > maxPromptLen {
		return nil, ErrPromptTooLong
	}
	if goaway.IsProfane(prompt) {
		return nil, ErrProfanity
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := e.complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		prompts, err := validateStructure(raw)
		if err == nil {
			return prompts, nil
		}
		zap.L().Warn("malformed expansion output, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, ErrRetryExhausted
}

func (e *Expander) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: exampleUser},
			{Role: openai.ChatMessageRoleAssistant, Content: exampleAssistant},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// validateStructure 严格校验扩写结果：Prompts 数组整体必须恰好包含 Prompt1..Prompt3 三个 key
func validateStructure(raw string) ([]string, error) {
	var data struct {
		Prompts []map[string]string `json:"Prompts"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	if data.Prompts == nil {
		return nil, errors.New("missing 'Prompts' key")
	}

	byKey := make(map[string]string)
	var keys []string
	for _, item := range data.Prompts {
		for k, v := range item {
			byKey[k] = v
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	expected := make([]string, 0, models.NumVariants)
	for i := 1; i <= models.NumVariants; i++ {
		expected = append(expected, fmt.Sprintf("Prompt%d", i))
	}
	if len(keys) != len(expected) {
		return nil, fmt.Errorf("expected %d prompts, got %d", len(expected), len(keys))
	}
	for i := range keys {
		if keys[i] != expected[i] {
			return nil, errors.New("'Prompts' must contain exactly Prompt1, Prompt2 and Prompt3")
		}
	}

	out := make([]string, 0, models.NumVariants)
	for _, k := range expected {
		out = append(out, byKey[k])
	}
	return out, nil
}
