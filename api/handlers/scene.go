package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/api"
	"github.com/BaSui01/storyframe/internal/metrics"
	"github.com/BaSui01/storyframe/types"
)

// =============================================================================
// 🎨 直连生成端点 Handler
// =============================================================================

// ImageDispatcher 图像批量生成接口，由 internal/dispatch.Dispatcher 实现
type ImageDispatcher interface {
	Generate(ctx context.Context, prompts []string) ([]string, error)
}

// SceneHandler 处理场景与分支图像生成的直连端点
type SceneHandler struct {
	dispatcher ImageDispatcher
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewSceneHandler 创建直连端点处理器
func NewSceneHandler(dispatcher ImageDispatcher, collector *metrics.Collector, logger *zap.Logger) *SceneHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SceneHandler{
		dispatcher: dispatcher,
		metrics:    collector,
		logger:     logger,
	}
}

// HandleGenerateScene 处理 POST /api/generate_scene
func (h *SceneHandler) HandleGenerateScene(w http.ResponseWriter, r *http.Request) {
	if !RequirePost(w, r, h.logger) {
		return
	}

	var req api.GenerateSceneRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ScenePrompt == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"scene_prompt is required", h.logger)
		return
	}

	h.logger.Info("generating scene", zap.String("prompt", req.ScenePrompt))

	start := time.Now()
	urls, err := h.dispatcher.Generate(r.Context(), []string{req.ScenePrompt})
	h.metrics.RecordGeneration("generate_scene", 1, time.Since(start), err)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.SceneResponse{
		Type:        "scene",
		SceneURL:    urls[0],
		ScenePrompt: req.ScenePrompt,
	})
}

// HandleGenerateChoices 处理 POST /api/generate_choices
func (h *SceneHandler) HandleGenerateChoices(w http.ResponseWriter, r *http.Request) {
	if !RequirePost(w, r, h.logger) {
		return
	}

	var req api.GenerateChoicesRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ChoiceAPrompt == "" || req.ChoiceBPrompt == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"choice_a_prompt and choice_b_prompt are required", h.logger)
		return
	}
	if req.ChoiceAText == "" {
		req.ChoiceAText = "Choice A"
	}
	if req.ChoiceBText == "" {
		req.ChoiceBText = "Choice B"
	}

	h.logger.Info("generating choices",
		zap.String("choice_a", req.ChoiceAPrompt),
		zap.String("choice_b", req.ChoiceBPrompt),
	)

	start := time.Now()
	urls, err := h.dispatcher.Generate(r.Context(), []string{req.ChoiceAPrompt, req.ChoiceBPrompt})
	h.metrics.RecordGeneration("generate_choices", 2, time.Since(start), err)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.ChoicesResponse{
		Type: "choices",
		Choices: []api.Choice{
			{Label: "A", Text: req.ChoiceAText, URL: urls[0], Prompt: req.ChoiceAPrompt},
			{Label: "B", Text: req.ChoiceBText, URL: urls[1], Prompt: req.ChoiceBPrompt},
		},
	})
}

// HandleLegacyScene 处理 POST /generate_scene（旧版组合端点：场景 + 两个选项）
func (h *SceneHandler) HandleLegacyScene(w http.ResponseWriter, r *http.Request) {
	if !RequirePost(w, r, h.logger) {
		return
	}

	var req api.LegacySceneRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ScenePrompt == "" || req.OptionA == "" || req.OptionB == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"scene_prompt, option_a and option_b are required", h.logger)
		return
	}

	h.logger.Info("generating legacy scene bundle",
		zap.String("scene", req.ScenePrompt),
		zap.String("option_a", req.OptionA),
		zap.String("option_b", req.OptionB),
	)

	start := time.Now()
	urls, err := h.dispatcher.Generate(r.Context(), []string{req.ScenePrompt, req.OptionA, req.OptionB})
	h.metrics.RecordGeneration("legacy_scene", 3, time.Since(start), err)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.LegacySceneResponse{
		SceneURL: urls[0],
		Options: []api.LegacyOption{
			{Label: "A", URL: urls[1], Prompt: req.OptionA},
			{Label: "B", URL: urls[2], Prompt: req.OptionB},
		},
	})
}

// HandleTestVapi 处理 POST /test_vapi（语音平台连通性探测）
func (h *SceneHandler) HandleTestVapi(w http.ResponseWriter, r *http.Request) {
	if !RequirePost(w, r, h.logger) {
		return
	}

	var req api.TestVapiRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	h.logger.Info("vapi test received", zap.String("test_message", req.TestMessage))

	WriteJSON(w, http.StatusOK, api.TestVapiResponse{
		Status:    "success",
		Message:   fmt.Sprintf("Backend received: %s", req.TestMessage),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeGenerationError 将生成失败转换为带状态码的错误响应
func (h *SceneHandler) writeGenerationError(w http.ResponseWriter, err error) {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		apiErr = types.NewError(types.ErrImageGeneration, "image generation failed").WithCause(err)
	}
	WriteError(w, apiErr, h.logger)
}
