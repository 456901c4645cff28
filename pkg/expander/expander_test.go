package expander

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

const goodReply = `{
    "Prompts": [
        {"Prompt1": "a cat"},
        {"Prompt2": "a fluffy cat sitting on a sunny windowsill"},
        {"Prompt3": "a fluffy orange cat sitting on a sunny windowsill, golden light streaming through lace curtains onto the wooden floor"}
    ]
}`

// fakeChat 按调用次序返回预设回复
type fakeChat struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func TestExpandSuccess(t *testing.T) {
	e := New(&fakeChat{replies: []string{goodReply}}, "")

	prompts, err := e.Expand(context.Background(), "a cat")
	require.NoError(t, err)
	require.Len(t, prompts, 3)
	require.Equal(t, "a cat", prompts[0])
	require.Contains(t, prompts[1], "cat")
	require.Contains(t, prompts[2], "cat")
}

func TestExpandRetriesOnMalformedOutput(t *testing.T) {
	f := &fakeChat{replies: []string{
		"not json at all",
		`{"Prompts": [{"Prompt1": "x"}, {"Prompt2": "y"}]}`,
		goodReply,
	}}
	e := New(f, "")

	prompts, err := e.Expand(context.Background(), "a cat")
	require.NoError(t, err)
	require.Len(t, prompts, 3)
	require.Equal(t, 3, f.calls)
}

func TestExpandRetryExhausted(t *testing.T) {
	f := &fakeChat{replies: []string{`{"wrong": true}`}}
	e := New(f, "")

	_, err := e.Expand(context.Background(), "a cat")
	require.ErrorIs(t, err, ErrRetryExhausted)
	// 初次 + 3 次重试
	require.Equal(t, 4, f.calls)
}

func TestExpandPromptTooLong(t *testing.T) {
	f := &fakeChat{replies: []string{goodReply}}
	e := New(f, "")

	_, err := e.Expand(context.Background(), strings.Repeat("a", maxPromptLen+1))
	require.ErrorIs(t, err, ErrPromptTooLong)
	require.Zero(t, f.calls)
}

func TestExpandProfanityRejected(t *testing.T) {
	f := &fakeChat{replies: []string{goodReply}}
	e := New(f, "")

	_, err := e.Expand(context.Background(), "draw a fucking dragon")
	require.ErrorIs(t, err, ErrProfanity)
	require.Zero(t, f.calls)
}

func TestExpandUpstreamError(t *testing.T) {
	e := New(&fakeChat{err: context.DeadlineExceeded}, "")

	_, err := e.Expand(context.Background(), "a cat")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", goodReply, false},
		{"invalid json", "{", true},
		{"missing prompts key", `{"Other": []}`, true},
		{"too few prompts", `{"Prompts": [{"Prompt1": "a"}]}`, true},
		{"too many prompts", `{"Prompts": [{"Prompt1": "a"}, {"Prompt2": "b"}, {"Prompt3": "c"}, {"Prompt4": "d"}]}`, true},
		{"wrong key names", `{"Prompts": [{"PromptA": "a"}, {"PromptB": "b"}, {"PromptC": "c"}]}`, true},
		{"keys merged in one object", `{"Prompts": [{"Prompt1": "a", "Prompt2": "b", "Prompt3": "c"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompts, err := validateStructure(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, prompts, 3)
		})
	}
}
