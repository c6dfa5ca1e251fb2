// Package config 提供 HolidayFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 (HOLIDAYFLOW_*) 的顺序叠加,
// 覆盖编排服务、编排器代理列表、预订代理、日志与遥测五个部分。
// YAML 中出现未知的键会导致加载失败; 环境变量解析错误会一次全部报告。
// 代理列表既可以在 YAML 中写成列表, 也可以写成
// "flight=http://...,hotel=http://..." 形式的字符串 (环境变量只支持后者)。
//
// Validate 检查端口范围与冲突、代理列表、超时和日志级别,
// 错误信息以对应的 YAML 路径开头。
package config
