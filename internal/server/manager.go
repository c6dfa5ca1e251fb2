package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

// Config 服务器配置. 零值字段在 NewManager 中取 DefaultConfig 的值.
type Config struct {
	Name            string        `yaml:"name" json:"name"` // 仅用于日志
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return Config{
		Name:            "http",
		Addr:            ":8000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateClosed
)

// Manager 管理一个 http.Server 的生命周期: 非阻塞启动, 一次性优雅关闭.
type Manager struct {
	config Config
	server *http.Server
	logger *zap.Logger
	errCh  chan error

	mu       sync.RWMutex
	state    state
	listener net.Listener
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Manager{
		config: config,
		server: &http.Server{
			Addr:           config.Addr,
			Handler:        handler,
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
		},
		logger: logger.With(zap.String("component", "http_server"), zap.String("server", config.Name)),
		errCh:  make(chan error, 1),
	}
}

// Name 返回服务器名称
func (m *Manager) Name() string {
	return m.config.Name
}

// Start 监听端口并在后台提供服务. 监听失败同步返回.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateRunning:
		return fmt.Errorf("server %s already started", m.config.Name)
	case stateClosed:
		return fmt.Errorf("server %s is closed", m.config.Name)
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("server %s: listen on %s: %w", m.config.Name, m.config.Addr, err)
	}
	m.listener = listener
	m.state = stateRunning
	m.logger.Info("HTTP server listening", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("HTTP server failed", zap.Error(err))
			m.errCh <- err
		}
	}()
	return nil
}

// Shutdown 在 ShutdownTimeout 内排空请求后关闭. 重复调用返回 nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == stateClosed {
		m.mu.Unlock()
		return nil
	}
	wasRunning := m.state == stateRunning
	m.state = stateClosed
	m.mu.Unlock()

	if !wasRunning {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return fmt.Errorf("server %s: shutdown: %w", m.config.Name, err)
	}
	m.logger.Info("HTTP server stopped", zap.Duration("drain", time.Since(start)))
	return nil
}

// Errors 返回服务过程中的异步错误, 最多一个
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr 返回监听地址, 运行中为实际绑定的地址
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == stateRunning {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 报告服务器是否已启动且未关闭
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateRunning
}

// =============================================================================
// 🧩 多服务器运行
// =============================================================================

// Run 启动所有服务器并阻塞, 直到 ctx 结束或任一服务器异常退出, 然后并行关闭全部.
// 编排服务与多个预订代理可以在同一进程中一起运行.
func Run(ctx context.Context, logger *zap.Logger, managers ...*Manager) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for i, m := range managers {
		if err := m.Start(); err != nil {
			return errors.Join(err, shutdownAll(managers[:i]))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range managers {
		g.Go(func() error {
			select {
			case err := <-m.Errors():
				return fmt.Errorf("server %s: %w", m.Name(), err)
			case <-gctx.Done():
				return nil
			}
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("server exited unexpectedly", zap.Error(runErr))
	} else {
		logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	}
	return errors.Join(runErr, shutdownAll(managers))
}

// shutdownAll 并行关闭, ctx 此时通常已结束, 因此使用独立的上下文
func shutdownAll(managers []*Manager) error {
	errs := make([]error, len(managers))
	var wg sync.WaitGroup
	for i, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Shutdown(context.Background())
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
