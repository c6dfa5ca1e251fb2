package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/BaSui01/holidayflow/types"
	"go.uber.org/zap"
)

// MaxBodyBytes 请求体上限
const MaxBodyBytes = 1 << 20

// =============================================================================
// 📦 响应结构
// =============================================================================

// Response 统一信封, 用于错误和 /version 等元信息接口.
// 预订结果本身不包信封, 直接返回 BookingResult / DomainOutcome.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// errorStatus 错误码对应的默认 HTTP 状态码
var errorStatus = map[types.ErrorCode]int{
	types.ErrInvalidRequest:     http.StatusBadRequest,
	types.ErrUnknownDomain:      http.StatusNotFound,
	types.ErrNotFound:           http.StatusNotFound,
	types.ErrRateLimited:        http.StatusTooManyRequests,
	types.ErrTimeout:            http.StatusGatewayTimeout,
	types.ErrNoDomains:          http.StatusServiceUnavailable,
	types.ErrServiceUnavailable: http.StatusServiceUnavailable,
	types.ErrAgentUnavailable:   http.StatusServiceUnavailable,
	types.ErrUpstreamError:      http.StatusBadGateway,
	types.ErrInternalError:      http.StatusInternalServerError,
}

// StatusFor 返回错误应使用的 HTTP 状态码: 显式设置的优先, 否则按错误码映射, 未知错误码为 500
func StatusFor(err *types.Error) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	if status, ok := errorStatus[err.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// =============================================================================
// 🎯 写响应
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 响应头已写出, 编码失败无法再报告
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 以信封形式写入 200 响应
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError 写入错误信封. 4xx 记 Warn, 5xx 记 Error, 请求 ID 同时写入日志和响应.
func WriteError(w http.ResponseWriter, r *http.Request, err *types.Error, logger *zap.Logger) {
	status := StatusFor(err)

	var requestID string
	if r != nil {
		requestID, _ = types.RequestID(r.Context())
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
		}
		if requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if err.Domain != "" {
			fields = append(fields, zap.String("domain", err.Domain))
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request rejected", fields...)
		}
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(err.Code),
			Message:   err.Message,
			Domain:    err.Domain,
			Retryable: err.Retryable,
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// WriteErrorFrom 写入任意错误. 非 *types.Error 按内部错误处理, 原始信息只进日志.
func WriteErrorFrom(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	apiErr, ok := types.AsError(err)
	if !ok {
		apiErr = types.NewError(types.ErrInternalError, "internal error").WithCause(err)
	}
	WriteError(w, r, apiErr, logger)
}

// WriteErrorMessage 以指定状态码写入简单错误
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, r, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// =============================================================================
// 🛡️ 请求解码
// =============================================================================

// DecodeJSONBody 校验 Content-Type 并严格解码请求体到 dst:
// 拒绝未知字段与多余内容, 超过 MaxBodyBytes 返回 413.
// 失败时已写出错误响应, 调用方只需返回.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		WriteErrorMessage(w, r, http.StatusUnsupportedMediaType, types.ErrInvalidRequest,
			"Content-Type must be application/json", logger)
		return false
	}
	if r.Body == nil || r.Body == http.NoBody {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "request body is empty", logger)
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	err = decoder.Decode(dst)
	if err == nil && decoder.More() {
		err = errors.New("unexpected data after JSON body")
	}
	if err == nil {
		return true
	}

	apiErr := types.NewError(types.ErrInvalidRequest, "invalid JSON body").WithCause(err)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		apiErr.Message = "request body too large"
		apiErr.HTTPStatus = http.StatusRequestEntityTooLarge
	case errors.Is(err, io.EOF):
		apiErr.Message = "request body is empty"
	}
	WriteError(w, r, apiErr, logger)
	return false
}

// =============================================================================
// 📊 ResponseWriter
// =============================================================================

// ResponseWriter 记录状态码与响应字节数, 供日志和指标中间件使用
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	Written      bool
	BytesWritten int64
}

// NewResponseWriter 包装 w, 默认状态码 200
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.Written {
		return
	}
	rw.StatusCode = code
	rw.Written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.BytesWritten += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
