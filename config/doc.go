// Package config 提供 StoryFrame 的配置管理功能。
//
// 支持从 YAML 文件和环境变量加载配置，优先级为
// 默认值 → 文件 → 环境变量。Provider 的 API Key 为必填项，
// 缺失时 Validate 返回错误，进程拒绝启动。
package config
