package provider

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestTranslateArkError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"sensitive content", "SensitiveContentDetected", ErrContentPolicy},
		{"output filter", "OutputTextSensitiveContentDetected.ContentFilter", ErrContentPolicy},
		{"invalid parameter", "InvalidParameter", ErrContentPolicy},
		{"rate limit", "RateLimitExceeded", ErrRateLimited},
		{"quota", "QuotaExceeded", ErrRateLimited},
		{"unknown", "InternalServiceError", ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateArkError(tt.code, "detail")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTranslateOpenAIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"policy rejection", &openai.APIError{HTTPStatusCode: 400, Message: "rejected"}, ErrContentPolicy},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrRateLimited},
		{"server error", &openai.APIError{HTTPStatusCode: 500, Message: "boom"}, ErrUnavailable},
		{"transport error", errors.New("connection refused"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, translateOpenAIError(tt.err), tt.want)
		})
	}
}

func TestTranslateGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"policy rejection", genai.APIError{Code: 400, Message: "blocked"}, ErrContentPolicy},
		{"rate limited", genai.APIError{Code: 429, Message: "slow down"}, ErrRateLimited},
		{"server error", genai.APIError{Code: 500, Message: "boom"}, ErrUnavailable},
		{"transport error", errors.New("connection refused"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, translateGeminiError(tt.err), tt.want)
		})
	}
}

func TestBuildKnownProviders(t *testing.T) {
	providers := Build(Options{})
	require.Len(t, providers, 3)
	require.Equal(t, "doubao", providers["doubao"].Name())
	require.Equal(t, "gemini", providers["gemini"].Name())
	require.Equal(t, "dalle", providers["dalle"].Name())
}
