package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/internal/storage"
	"github.com/BaSui01/storyframe/providers"
	"github.com/BaSui01/storyframe/types"
)

// ImagenProvider 实现 Google Imagen 的图像生成 Provider。
// Imagen API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. predict 端点同步返回 base64 编码的图片字节
// 3. 没有任务轮询，单次调用即拿到结果
//
// 每次成功调用都会在内容存储中产生一个新文件，即使提示词重复。
// 失败统一包装为 IMAGE_GENERATION 错误并携带原始提示词，从不自动重试。
type ImagenProvider struct {
	cfg    providers.ImagenConfig
	client *http.Client
	store  *storage.Store
	logger *zap.Logger
}

// NewImagenProvider 创建 Imagen Provider
func NewImagenProvider(cfg providers.ImagenConfig, store *storage.Store, logger *zap.Logger) *ImagenProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	// 设置默认 BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "imagen-3.0-generate-002"
	}

	return &ImagenProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		store:  store,
		logger: logger.With(zap.String("component", "imagen")),
	}
}

func (p *ImagenProvider) Name() string { return "imagen" }

// Imagen predict 请求/响应结构
type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenResponse struct {
	Predictions []imagenPrediction `json:"predictions"`
}

type imagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type imagenErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateImage 调用 Imagen 生成一张图片，将字节同步写入内容存储后
// 返回可服务的 URL。返回的 URL 在响应时刻对应的文件一定存在。
func (p *ImagenProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	data, err := p.predict(ctx, prompt)
	if err != nil {
		return "", wrapGenerationError(prompt, err)
	}

	url, err := p.store.Save(data, ".png")
	if err != nil {
		return "", wrapGenerationError(prompt, err)
	}

	p.logger.Info("image generated",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
	)

	return url, nil
}

// predict 执行 predict 调用并解码返回的图片字节。
func (p *ImagenProvider) predict(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := imagenRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: 1},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:predict",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	p.buildHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, types.NewError(types.ErrUpstreamTimeout, "imagen request timed out").
				WithCause(err).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrUpstreamError, "imagen request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readImagenErrMsg(resp.Body)
		return nil, mapImagenError(resp.StatusCode, msg)
	}

	var predResp imagenResponse
	if err := json.NewDecoder(resp.Body).Decode(&predResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(predResp.Predictions) == 0 {
		return nil, errors.New("imagen returned no predictions")
	}

	data, err := base64.StdEncoding.DecodeString(predResp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("imagen returned empty image payload")
	}

	return data, nil
}

func (p *ImagenProvider) buildHeaders(req *http.Request, apiKey string) {
	// Imagen 使用 x-goog-api-key 认证
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// wrapGenerationError 将任意失败（网络、解码、写盘）统一包装为
// IMAGE_GENERATION 错误并携带提示词。已经带错误码的超时保持其语义。
func wrapGenerationError(prompt string, err error) error {
	if types.GetErrorCode(err) == types.ErrUpstreamTimeout {
		var e *types.Error
		if errors.As(err, &e) {
			return e.WithPrompt(prompt)
		}
	}
	return types.NewError(types.ErrImageGeneration, "image generation failed").
		WithCause(err).
		WithPrompt(prompt)
}

func readImagenErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp imagenErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)
	}
	return string(data)
}

func mapImagenError(status int, msg string) *types.Error {
	switch status {
	case http.StatusTooManyRequests:
		return &types.Error{Code: types.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &types.Error{Code: types.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true}
	default:
		return &types.Error{Code: types.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500}
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
