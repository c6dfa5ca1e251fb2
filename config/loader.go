package config

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 环境变量前缀, 如 HOLIDAYFLOW_ORCHESTRATOR_DOMAIN_TIMEOUT
const DefaultEnvPrefix = "HOLIDAYFLOW"

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 依次叠加 默认值 → YAML 文件 → 环境变量, 最后运行验证器.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("holidayflow.yaml").
//	    WithValidator((*config.Config).Validate).
//	    Load()
type Loader struct {
	path       string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建使用 DefaultEnvPrefix 的加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath 设置 YAML 文件路径. 文件不存在时只使用默认值和环境变量.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnvPrefix 替换环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 追加验证器, 按添加顺序执行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 构建配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.applyFile(cfg); err != nil {
		return nil, err
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	for _, validate := range l.validators {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}

// applyFile 解码 YAML 到 cfg 之上, 未出现的键保留默认值, 未知的键报错
func (l *Loader) applyFile(cfg *Config) error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: open %s: %w", l.path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", l.path, err)
	}
	return nil
}

// =============================================================================
// 🌱 环境变量
// =============================================================================

// envField 一个可由环境变量设置的配置项
type envField struct {
	key   string
	value reflect.Value
}

// envFields 沿 env 标签展开结构体, 键为 前缀_段_字段
func envFields(v reflect.Value, prefix string, out []envField) []envField {
	t := v.Type()
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		if field := v.Field(i); field.Kind() == reflect.Struct {
			out = envFields(field, key, out)
		} else {
			out = append(out, envField{key: key, value: field})
		}
	}
	return out
}

// applyEnv 用非空环境变量覆盖 cfg, 一次报告所有无法解析的变量
func (l *Loader) applyEnv(cfg *Config) error {
	var errs []error
	for _, f := range envFields(reflect.ValueOf(cfg).Elem(), l.envPrefix, nil) {
		raw, ok := os.LookupEnv(f.key)
		if !ok || raw == "" {
			continue
		}
		if err := parseInto(f.value, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(errs...))
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseInto 把字符串写入字段. 实现 encoding.TextUnmarshaler 的类型自行解析,
// 字符串切片按逗号拆分.
func parseInto(v reflect.Value, raw string) error {
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText([]byte(raw))
	}

	switch {
	case v.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
	case v.Kind() == reflect.String:
		v.SetString(raw)
	case v.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case v.CanInt():
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case v.CanUint():
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case v.CanFloat():
		n, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(n)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		v.Set(reflect.ValueOf(parts).Convert(v.Type()))
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}
