// Copyright (c) HolidayFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 用 Prometheus 记录 HolidayFlow 的运行指标。

Collector 通过 promauto 注册全部指标, 名称统一带 namespace 前缀:

  - HTTP: http_requests_total{method,path,status} 与耗时、请求/响应大小直方图,
    status 折叠为 2xx/4xx/5xx 等类别, path 由中间件归一化。
  - 任务 (预订代理): task_executions_total{agent,state}、
    task_state_transitions_total{agent,from_state,to_state} 与执行耗时。
  - 编排: dispatch_total{domain,outcome}、bookings_total{tier}、
    对应的耗时直方图, 以及 agent_up{domain}。

NewCollector 注册到默认 Registry, 由 promhttp.Handler 暴露;
NewCollectorWith 接受自定义 Registerer。Collector 满足编排器的 MetricsRecorder 接口。
*/
package metrics
