// =============================================================================
// HolidayFlow 主入口
// =============================================================================
// 编排服务、预订代理与命令行客户端共用一个二进制
//
// 使用方法:
//
//	holidayflow serve                        # 启动编排服务
//	holidayflow serve --config config.yaml   # 指定配置文件
//	holidayflow agent --domain flight        # 启动单个预订代理
//	holidayflow agents                       # 在一个进程中启动全部预订代理
//	holidayflow book --to Tokyo --nights 4   # 调用编排服务预订假期
//	holidayflow status                       # 查看各代理状态
//	holidayflow health                       # 健康检查
//	holidayflow version                      # 显示版本信息
// =============================================================================

// @title HolidayFlow API
// @version 1.0.0
// @description HolidayFlow coordinates flight, hotel and cab booking agents over a task protocol
// @description and aggregates their results into one holiday booking.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/holidayflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "agent":
		err = runAgent(os.Args[2:])
	case "agents":
		err = runAgents(os.Args[2:])
	case "book":
		err = runBook(os.Args[2:], os.Stdout)
	case "status":
		err = runStatus(os.Args[2:], os.Stdout)
	case "health":
		err = runHealthCheck(os.Args[2:], os.Stdout)
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// ⚙️ 配置加载
// =============================================================================

// loadConfig 加载并验证配置: 默认值 → YAML 文件 → HOLIDAYFLOW_* 环境变量
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFlag 为子命令注册 --config 参数
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Path to config file (YAML)")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("HolidayFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`HolidayFlow - holiday booking agents and orchestrator

Usage:
  holidayflow <command> [options]

Commands:
  serve     Start the orchestrator service
  agent     Start one booking agent (flight, hotel or cab)
  agents    Start all booking agents in one process
  book      Book a holiday through a running orchestrator
  status    Show the status of every booking agent
  health    Check server health
  version   Show version information
  help      Show this help message

Options for 'serve', 'agent' and 'agents':
  --config <path>   Path to configuration file (YAML)

Options for 'agent':
  --domain <name>   flight, hotel or cab

Options for 'book':
  --addr <url>      Orchestrator address (default http://localhost:8000)
  --from <city>     Origin (default Delhi)
  --to <city>       Destination (required unless --demo)
  --date <date>     Departure date YYYY-MM-DD (default today)
  --passengers <n>  Number of passengers (default 1)
  --nights <n>      Number of nights (default 1)
  --room <type>     Room type (default double)
  --demo            Use the demo request (Delhi to Paris)
  --json            Print the raw JSON result

Examples:
  holidayflow agents
  holidayflow serve --config /etc/holidayflow/config.yaml
  holidayflow book --from Delhi --to Tokyo --date 2026-12-20 --passengers 2 --nights 4
  holidayflow status --addr http://localhost:8000
  holidayflow health --addr http://localhost:5002
  holidayflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// loggerConfig 把日志配置转换为 zap.Config. 级别已由 Config.Validate 检查, 无法解析时用 info.
func loggerConfig(cfg config.LogConfig) zap.Config {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.Development = true
		zc.Sampling = nil
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.OutputPaths = []string{"stdout"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.DisableCaller = !cfg.EnableCaller
	zc.DisableStacktrace = !cfg.EnableStacktrace
	return zc
}

// initLogger 构建进程日志, 输出路径不可用时退回到 stderr 上的生产配置
func initLogger(cfg config.LogConfig) *zap.Logger {
	logger, err := loggerConfig(cfg).Build()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("falling back to default logger", zap.Error(err))
	}
	return logger
}
