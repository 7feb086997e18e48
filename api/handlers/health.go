package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger    *zap.Logger
	startTime time.Time
}

// HealthStatus /health 响应，字段与语音平台侧探活约定保持一致
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthzStatus /healthz 响应，带运行时信息
type HealthzStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
	}
}

// HandleHealth 处理 GET /health（语音平台侧使用的固定格式）
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:  "healthy",
		Message: "StoryFrame API is running!",
	})
}

// HandleHealthz 处理 GET /healthz（运维探针）
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthzStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
