package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/api"
	"github.com/BaSui01/storyframe/internal/metrics"
)

// =============================================================================
// 🎙️ 语音平台 Webhook 适配器
// =============================================================================
// 平台对 webhook 的约定：HTTP 状态恒为 200，失败以结果文本形式
// 写进 results。非 200 会让平台直接丢弃响应，对话中断。
// =============================================================================

// 工具参数缺省值（与平台工具定义保持一致）
const (
	defaultScenePrompt   = "A mysterious adventure scene..."
	defaultChoiceAPrompt = "Option A"
	defaultChoiceBPrompt = "Option B"
	defaultChoiceAText   = "Choice A"
	defaultChoiceBText   = "Choice B"
)

// VapiHandler 工具调用 webhook 处理器。
// 两个 webhook 路由共用同一个适配器，按 function.name 分发，
// 因此任一 URL 都能处理任一工具。
type VapiHandler struct {
	dispatcher ImageDispatcher
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewVapiHandler 创建 webhook 处理器
func NewVapiHandler(dispatcher ImageDispatcher, collector *metrics.Collector, logger *zap.Logger) *VapiHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VapiHandler{
		dispatcher: dispatcher,
		metrics:    collector,
		logger:     logger,
	}
}

// HandleToolCalls 处理 POST /vapi/generate_scene 和 POST /vapi/generate_choices
func (h *VapiHandler) HandleToolCalls(w http.ResponseWriter, r *http.Request) {
	// webhook 侧任何 panic 都不能变成非 200
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic in webhook handler", zap.Any("panic", rec))
			h.writeSentinel(w, fmt.Sprintf("Server error: %v", rec))
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		h.writeSentinel(w, fmt.Sprintf("Request parsing failed: %v", err))
		return
	}

	// 宽松解码：平台信封携带大量未建模字段，不能用严格模式
	var req api.VapiRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("webhook parse error", zap.Error(err))
		h.writeSentinel(w, fmt.Sprintf("Request parsing failed: %v", err))
		return
	}

	if req.Message == nil || len(req.Message.ToolCallList) == 0 {
		h.logger.Warn("no tool calls found in webhook request")
		h.writeSentinel(w, "No tool calls found in request")
		return
	}

	results := make([]api.VapiResult, 0, len(req.Message.ToolCallList))
	for _, tc := range req.Message.ToolCallList {
		if tc.ID == "" || tc.Function == nil || tc.Function.Name == "" {
			h.logger.Warn("dropping malformed tool call",
				zap.String("id", tc.ID),
				zap.String("type", tc.Type),
			)
			h.metrics.RecordDroppedToolCall()
			continue
		}
		results = append(results, api.VapiResult{
			ToolCallID: tc.ID,
			Result:     h.runToolCall(r, tc),
		})
	}

	WriteJSON(w, http.StatusOK, api.VapiResponse{Results: results})
}

// runToolCall 执行单条工具调用，返回结果文本。
// 生成失败也返回文本，由调用方下发给对应 toolCallId。
func (h *VapiHandler) runToolCall(r *http.Request, tc api.VapiToolCall) string {
	name := tc.Function.Name
	args := tc.Function.Arguments

	h.logger.Info("processing tool call",
		zap.String("tool", name),
		zap.String("tool_call_id", tc.ID),
	)

	switch name {
	case "generate_scene":
		prompt := stringArg(args, "scene_prompt", defaultScenePrompt)

		start := time.Now()
		urls, err := h.dispatcher.Generate(r.Context(), []string{prompt})
		h.metrics.RecordGeneration("generate_scene", 1, time.Since(start), err)
		if err != nil {
			h.logger.Error("scene generation failed",
				zap.String("tool_call_id", tc.ID),
				zap.Error(err),
			)
			h.metrics.RecordToolCall(name, "error")
			return fmt.Sprintf("Image generation failed: %v", err)
		}

		h.metrics.RecordToolCall(name, "success")
		return fmt.Sprintf("Scene generated successfully! Image URL: %s", urls[0])

	case "generate_choices":
		choiceAPrompt := stringArg(args, "choice_a_prompt", defaultChoiceAPrompt)
		choiceBPrompt := stringArg(args, "choice_b_prompt", defaultChoiceBPrompt)
		choiceAText := stringArg(args, "choice_a_text", defaultChoiceAText)
		choiceBText := stringArg(args, "choice_b_text", defaultChoiceBText)

		start := time.Now()
		urls, err := h.dispatcher.Generate(r.Context(), []string{choiceAPrompt, choiceBPrompt})
		h.metrics.RecordGeneration("generate_choices", 2, time.Since(start), err)
		if err != nil {
			h.logger.Error("choice generation failed",
				zap.String("tool_call_id", tc.ID),
				zap.Error(err),
			)
			h.metrics.RecordToolCall(name, "error")
			return fmt.Sprintf("Image generation failed: %v", err)
		}

		h.metrics.RecordToolCall(name, "success")
		return fmt.Sprintf("Choices generated successfully! Choice A (%s): %s, Choice B (%s): %s",
			choiceAText, urls[0], choiceBText, urls[1])

	default:
		h.logger.Warn("unknown tool call", zap.String("tool", name))
		h.metrics.RecordToolCall(name, "unknown")
		return fmt.Sprintf("Unknown tool: %s", name)
	}
}

// writeSentinel 写入信封级失败：单条哨兵结果，toolCallId 固定为 "error"
func (h *VapiHandler) writeSentinel(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, api.VapiResponse{
		Results: []api.VapiResult{{ToolCallID: "error", Result: message}},
	})
}

// stringArg 读取字符串参数，缺失或类型不符时返回缺省值
func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}
