// Package tlsutil 提供出站 HTTP 客户端共用的传输配置:
// 编排服务调用预订代理, 以及命令行客户端调用编排服务, 都经由这里创建 http.Client。
// TLS 最低 1.2, 1.2 下仅提供 AEAD 密码套件。
package tlsutil
