// Copyright (c) HolidayFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 holidayflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、api、cmd
等上层模块提供统一的错误契约和 context 键。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Domain 标记

# 主要能力

  - Context 传播：WithRequestID / WithBookingID
  - 错误工具链：AsError / IsErrorCode, errors.Is 按错误码匹配
  - 常用错误构造：NewInvalidRequestError
*/
package types
