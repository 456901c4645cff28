package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"imagen/util"
)

const arkModel = "doubao-seedream-4-0-250828"

// Ark 火山方舟 doubao-seedream 后端
type Ark struct {
	apiKey string
}

func NewArk(apiKey string) *Ark {
	return &Ark{apiKey: apiKey}
}

func (a *Ark) Name() string { return "doubao" }

func (a *Ark) Generate(ctx context.Context, prompt string) ([]byte, error) {
	client := arkruntime.NewClientWithApiKey(a.apiKey)

	generateReq := model.GenerateImagesRequest{
		Model:          arkModel,
		Prompt:         prompt,
		Size:           volcengine.String("1K"),
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	}
	resp, err := client.GenerateImages(ctx, generateReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.Error != nil {
		return nil, translateArkError(resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Data) == 0 || resp.Data[0].Url == nil {
		return nil, fmt.Errorf("%w: empty image response", ErrUnavailable)
	}

	// doubao 只回 URL，这里取回字节
	img, err := util.FetchImage(ctx, *resp.Data[0].Url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return img, nil
}

// translateArkError 把方舟的错误码翻译成统一信号
func translateArkError(code, message string) error {
	upper := strings.ToUpper(code)
	switch {
	case strings.Contains(upper, "SENSITIVE"), strings.Contains(upper, "CONTENTFILTER"),
		strings.Contains(upper, "INVALIDPARAMETER"):
		return fmt.Errorf("%w: %s", ErrContentPolicy, message)
	case strings.Contains(upper, "RATELIMIT"), strings.Contains(upper, "QUOTA"):
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	default:
		return fmt.Errorf("%w: %s - %s", ErrUnavailable, code, message)
	}
}
