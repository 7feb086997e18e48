// =============================================================================
// 📦 StoryFrame 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Provider:  DefaultProviderConfig(),
		Storage:   DefaultStorageConfig(),
		Dispatch:  DefaultDispatchConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8000,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		// 前端与 webhook 平台来源不固定，默认允许所有来源
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       10,
		RateLimitBurst:     20,
	}
}

// DefaultProviderConfig 返回默认 Provider 配置
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "imagen-3.0-generate-002",
		Timeout: 60 * time.Second,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Dir:        "static",
		PublicBase: "/static",
	}
}

// DefaultDispatchConfig 返回默认调度配置
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxConcurrent: 16,
		QueueSize:     64,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "storyframe",
	}
}
