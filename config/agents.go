package config

import (
	"encoding"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AgentEndpoint 领域与代理地址的绑定
type AgentEndpoint struct {
	Domain string `yaml:"domain" json:"domain"`
	URL    string `yaml:"url" json:"url"`
}

// AgentList 有序的代理列表. 环境变量写法为 "flight=http://a:5002,hotel=http://b:5003".
type AgentList []AgentEndpoint

var (
	_ encoding.TextUnmarshaler = (*AgentList)(nil)
	_ fmt.Stringer             = AgentList(nil)
	_ encoding.TextUnmarshaler = (*PortMap)(nil)
	_ fmt.Stringer             = PortMap(nil)
)

// UnmarshalText 解析环境变量写法, 领域名转为小写. 空字符串得到空列表.
func (l *AgentList) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*l = AgentList{}
		return nil
	}

	entries := strings.Split(raw, ",")
	out := make(AgentList, 0, len(entries))
	for _, entry := range entries {
		domain, url, found := strings.Cut(entry, "=")
		a := AgentEndpoint{
			Domain: strings.ToLower(strings.TrimSpace(domain)),
			URL:    strings.TrimSpace(url),
		}
		if !found || a.Domain == "" || a.URL == "" {
			return fmt.Errorf("agent entry %q: want domain=url", strings.TrimSpace(entry))
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

// String 返回环境变量写法, UnmarshalText 可以还原
func (l AgentList) String() string {
	var b strings.Builder
	for i, a := range l {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Domain)
		b.WriteByte('=')
		b.WriteString(a.URL)
	}
	return b.String()
}

// PortMap 领域到监听端口. 环境变量写法为 "train=5004,ferry=5005".
type PortMap map[string]int

// UnmarshalText 解析环境变量写法, 领域名转为小写. 空字符串得到空映射.
func (m *PortMap) UnmarshalText(text []byte) error {
	out := PortMap{}
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*m = out
		return nil
	}
	for _, entry := range strings.Split(raw, ",") {
		domain, value, found := strings.Cut(entry, "=")
		domain = strings.ToLower(strings.TrimSpace(domain))
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if !found || domain == "" || err != nil {
			return fmt.Errorf("port entry %q: want domain=port", strings.TrimSpace(entry))
		}
		out[domain] = port
	}
	*m = out
	return nil
}

// Domains 返回按名称排序的领域
func (m PortMap) Domains() []string {
	domains := make([]string, 0, len(m))
	for d := range m {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// String 返回环境变量写法, 按领域排序
func (m PortMap) String() string {
	var b strings.Builder
	for i, d := range m.Domains() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(m[d]))
	}
	return b.String()
}
