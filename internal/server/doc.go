// 版权所有 2024 HolidayFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭以及多个服务器在同一进程中协同运行。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/Shutdown 等生命周期方法。
  - Config：服务器配置，包含名称、监听地址、读写超时、空闲超时、
    最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 协同运行：Run 同时启动编排服务、指标服务与预订代理，
    在上下文结束 (通常由 SIGINT/SIGTERM 触发) 或任一服务器
    异常退出时关闭全部服务器。
  - 状态查询：IsRunning/Addr 提供运行状态与实际监听地址。
*/
package server
