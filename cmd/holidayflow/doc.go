// Copyright (c) HolidayFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 HolidayFlow 的程序入口。

# 概述

cmd/holidayflow 把编排服务、三个预订代理和命令行客户端打包为一个二进制。
程序支持 YAML 配置文件加载与 HOLIDAYFLOW_* 环境变量覆盖、
结构化日志（zap）、Prometheus 指标采集和 OpenTelemetry 链路追踪。

# 核心类型

  - Server       — 编排服务，持有 Orchestrator、HTTP 与 Metrics 双端口
  - AgentServer  — 单个领域的预订代理：执行器 + A2A 传输 + HTTP 服务器
  - Middleware   — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、agent、agents、book、status、health、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、MetricsMiddleware、CORS、RateLimiter（基于 IP）
  - 代理在自身端口同时暴露 /metrics，编排服务使用独立 Metrics 端口
  - 优雅关闭：信号监听 → 并行关闭全部服务器 → 刷新遥测导出器
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
