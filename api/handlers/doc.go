// Copyright (c) HolidayFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 holidayflow 编排服务 HTTP API 的请求处理器实现。

# 概述

handlers 包实现编排服务的全部 HTTP 端点：假期预订、单领域预订、
代理状态查询、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，路由使用 Go 1.22 的
"METHOD /path/{param}" 模式。

# 核心类型

  - BookingHandler   — 假期预订、演示预订、单领域预订与代理状态
  - BookingService   — 编排服务接口，由 *orchestrator.Orchestrator 实现
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready, /version）
  - Response         — 统一 JSON 错误响应结构（success + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、domain、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码与写入字节数
  - HealthCheck      — 可插拔健康检查接口（FuncHealthCheck、AgentsHealthCheck）

# 主要能力

  - 预订结果直接返回 BookingResult / DomainOutcome，部分失败仍为 200
  - 统一错误格式：WriteError / WriteErrorFrom / WriteErrorMessage
  - 请求解码：DecodeJSONBody 先校验 Content-Type（415），再以严格模式解码，
    超过 MaxBodyBytes 返回 413，失败时已写出错误响应
  - StatusFor：ErrorCode → HTTP 状态码映射，显式 HTTPStatus 优先
  - 错误响应与日志携带 request_id，4xx 记 Warn，5xx 记 Error
  - 就绪检查：各检查并发执行并受超时约束，至少一个预订代理可达时 /ready 返回 200
*/
package handlers
