// Package handlers 实现 StoryFrame 的 HTTP 处理器。
//
// 分为三个入口面：
//   - 健康检查（/health、/healthz）
//   - 直连生成端点（/api/*、旧版 /generate_scene、/test_vapi）
//   - 语音平台 webhook 适配器（/vapi/*），对平台恒返回 HTTP 200，
//     错误以结果文本形式下发
package handlers
