package tlsutil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// agentConnsPerHost allows one idle connection per in-flight booking to the
// same agent. net/http keeps only two by default.
const agentConnsPerHost = 32

// aeadSuites are the TLS 1.2 suites offered. TLS 1.3 suites are not
// configurable and are always AEAD.
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// DefaultTLSConfig returns a client TLS config with a TLS 1.2 floor.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: append([]uint16(nil), aeadSuites...),
	}
}

// SecureTransport clones http.DefaultTransport with DefaultTLSConfig and a
// larger per-host idle pool. It sets no ResponseHeaderTimeout because a task
// submission holds the response until the agent finishes; callers bound it
// with a context.
func SecureTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = DefaultTLSConfig()
	tr.MaxIdleConnsPerHost = agentConnsPerHost
	tr.ResponseHeaderTimeout = 0
	return tr
}

// SecureHTTPClient returns a client over SecureTransport. timeout 0 means no
// client-level limit.
func SecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: SecureTransport()}
}
