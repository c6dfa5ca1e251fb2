package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// 协议路径
const (
	PathAgentCard  = "/.well-known/agent.json"
	PathTaskSend   = "/a2a/tasks/send"
	PathTaskPrefix = "/a2a/tasks/"
	PathHealth     = "/health"
)

// SendTaskRequest 是提交任务的请求体.
type SendTaskRequest struct {
	Task *Task `json:"task"`
}

// SendTaskResponse 携带任务的终态快照.
type SendTaskResponse struct {
	Task *Task `json:"task"`
}

// CancelTaskResponse 报告取消请求是否生效.
type CancelTaskResponse struct {
	TaskID    string    `json:"task_id"`
	Cancelled bool      `json:"cancelled"`
	State     TaskState `json:"state,omitempty"`
}

// ServerConfig 持有A2A执行端服务器的配置.
type ServerConfig struct {
	// RequestTimeout 是单个任务处理的上限.
	RequestTimeout time.Duration
	// TaskRetention 是终态任务在内存中保留的时间.
	TaskRetention time.Duration
	// MaxBodyBytes 限制请求体大小.
	MaxBodyBytes int64
	// Logger 是日志实例.
	Logger *zap.Logger
}

// DefaultServerConfig 返回带有合理默认值的服务器配置.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		RequestTimeout: 30 * time.Second,
		TaskRetention:  10 * time.Minute,
		MaxBodyBytes:   1 << 20,
		Logger:         zap.NewNop(),
	}
}

// HTTPServer 通过HTTP暴露一个执行器及其代理卡.
type HTTPServer struct {
	config   *ServerConfig
	logger   *zap.Logger
	card     *AgentCard
	executor *Executor
}

var _ http.Handler = (*HTTPServer)(nil)

// NewHTTPServer 创建执行端服务器. 代理卡必须有效.
func NewHTTPServer(card *AgentCard, executor *Executor, config *ServerConfig) (*HTTPServer, error) {
	if card == nil {
		return nil, ErrMissingName
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, errors.New("a2a server: nil executor")
	}
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &HTTPServer{
		config:   config,
		logger:   config.Logger.With(zap.String("component", "a2a_server"), zap.String("agent", card.Name)),
		card:     card,
		executor: executor,
	}, nil
}

// Card 返回服务器公布的代理卡.
func (s *HTTPServer) Card() *AgentCard {
	return s.card
}

// Executor 返回底层执行器.
func (s *HTTPServer) Executor() *Executor {
	return s.executor
}

// ServeHTTP 实现 http.Handler.
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	method := r.Method

	switch {
	case path == PathAgentCard && method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.card)
	case path == PathHealth && method == http.MethodGet:
		s.handleHealth(w)
	case path == PathTaskSend && method == http.MethodPost:
		s.handleSendTask(w, r)
	case strings.HasPrefix(path, PathTaskPrefix) && strings.HasSuffix(path, "/cancel") && method == http.MethodPost:
		s.handleCancelTask(w, r)
	case strings.HasPrefix(path, PathTaskPrefix) && method == http.MethodGet:
		s.handleGetTask(w, r)
	default:
		s.writeError(w, http.StatusNotFound, fmt.Errorf("endpoint not found: %s %s", method, path))
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter) {
	stats := s.executor.Store().Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"agent":  s.card.Name,
		"tasks":  stats,
	})
}

// handleSendTask 同步处理任务并返回其终态.
func (s *HTTPServer) handleSendTask(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	var req SendTaskRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidMessage, err))
		return
	}
	if req.Task == nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: missing task", ErrInvalidMessage))
		return
	}

	// 继承调用方的追踪上下文
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	task, err := s.executor.Execute(ctx, req.Task)
	if err != nil {
		switch {
		case errors.Is(err, ErrTaskExists):
			s.writeError(w, http.StatusConflict, err)
		case errors.Is(err, ErrInvalidMessage):
			s.writeError(w, http.StatusBadRequest, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, SendTaskResponse{Task: task})
}

func (s *HTTPServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, PathTaskPrefix)
	if taskID == "" || strings.Contains(taskID, "/") {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid task id", ErrInvalidMessage))
		return
	}

	task, err := s.executor.Store().Get(taskID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SendTaskResponse{Task: task})
}

func (s *HTTPServer) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, PathTaskPrefix), "/cancel")
	if taskID == "" || strings.Contains(taskID, "/") {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid task id", ErrInvalidMessage))
		return
	}

	cancelled, err := s.executor.Cancel(taskID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	resp := CancelTaskResponse{TaskID: taskID, Cancelled: cancelled}
	if task, err := s.executor.Store().Get(taskID); err == nil {
		resp.State = task.Status.State
	}
	s.logger.Info("cancel request handled",
		zap.String("task_id", taskID),
		zap.Bool("cancelled", cancelled),
	)
	s.writeJSON(w, http.StatusOK, resp)
}

// StartCleanupLoop 启动后台goroutine定期清理过期任务.
func (s *HTTPServer) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	if s.config.TaskRetention <= 0 || interval <= 0 {
		return
	}
	s.executor.Store().StartCleanupLoop(ctx, interval, s.config.TaskRetention)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// 写入错误响应.
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request error",
		zap.Int("status", status),
		zap.Error(err),
	)

	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}
