// Package server 提供 HTTP 服务器的生命周期管理：
// 非阻塞启动、优雅关闭、关闭信号等待。
// This package is internal and should not be imported by external projects.
package server
