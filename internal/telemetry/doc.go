// Package telemetry 负责单个进程的 OpenTelemetry 初始化。
//
// 编排服务和每个预订代理各自调用 Init, 资源属性中带有
// service.namespace=holidayflow 与 holidayflow.role, 便于在后端按角色筛选。
// 无论是否启用导出, 都会安装 W3C TraceContext 传播器,
// 代理因此能够延续编排服务发起的同一条预订链路。
package telemetry
