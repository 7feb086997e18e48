// Package providers 定义外部生成服务的 Provider 配置。
// 具体实现位于各子包（imagen）。
package providers
