// Package api 定义 StoryFrame HTTP API 的 wire 类型。
//
// 包含三组形状：
//   - 直连端点（/api/generate_scene、/api/generate_choices）
//   - 旧版组合端点（/generate_scene），仅为向后兼容保留
//   - 语音平台 webhook 信封（/vapi/*），字段名与平台实际发送的
//     JSON 保持逐字一致（toolCallList、toolCallId 等）
package api
