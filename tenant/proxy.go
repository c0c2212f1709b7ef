package tenant

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// TrustedProxyConfig defines which reverse proxy headers to trust when
// working out the URL the client actually requested.
//
// SECURITY WARNING: Only enable when behind a trusted reverse proxy that
// strips client supplied forwarded headers. Otherwise any client can pick
// its tenant by sending X-Forwarded-Host.
type TrustedProxyConfig struct {
	// TrustXForwardedProto enables X-Forwarded-Proto header (https/http scheme)
	TrustXForwardedProto bool

	// TrustXForwardedHost enables X-Forwarded-Host header (original hostname)
	TrustXForwardedHost bool

	// TrustXForwardedPrefix enables X-Forwarded-Prefix header (API gateway path prefix)
	TrustXForwardedPrefix bool

	// TrustForwarded enables RFC 7239 Forwarded header. It takes precedence
	// over X-Forwarded-* when both are present.
	TrustForwarded bool
}

// StandardProxy trusts X-Forwarded-Proto and X-Forwarded-Host, as set by
// Nginx, Apache or HAProxy.
func StandardProxy() *TrustedProxyConfig {
	return &TrustedProxyConfig{TrustXForwardedProto: true, TrustXForwardedHost: true}
}

// RFC7239Proxy trusts only the Forwarded header.
func RFC7239Proxy() *TrustedProxyConfig {
	return &TrustedProxyConfig{TrustForwarded: true}
}

// DisplayURL reconstructs the absolute URL the client requested. Default
// ports are dropped. It fails with ErrNoRequestURL when the request has
// neither a host nor a URL.
func DisplayURL(r *http.Request, config *TrustedProxyConfig) (*url.URL, error) {
	if r.URL == nil && r.Host == "" {
		return nil, ErrNoRequestURL
	}

	u := &url.URL{Scheme: "https"}
	if r.TLS == nil {
		u.Scheme = "http"
	}
	u.Host = r.Host
	if r.URL != nil {
		if u.Host == "" {
			u.Host = r.URL.Host
		}
		u.Path = r.URL.Path
		u.RawQuery = r.URL.RawQuery
	}

	if config != nil {
		applyForwarded(r.Header, config, u)
	}

	if u.Host == "" {
		return nil, ErrNoRequestURL
	}
	u.Host = normalizePort(u.Host, u.Scheme)
	return u, nil
}

func applyForwarded(header http.Header, config *TrustedProxyConfig, u *url.URL) {
	forwardedScheme, forwardedHost := "", ""
	if config.TrustForwarded {
		if forwarded := header.Get("Forwarded"); forwarded != "" {
			forwardedScheme, forwardedHost = parseForwardedHeader(forwarded)
		}
	}

	switch {
	case forwardedScheme != "":
		u.Scheme = forwardedScheme
	case config.TrustXForwardedProto:
		if proto := getLeftmost(header.Get("X-Forwarded-Proto")); proto != "" {
			u.Scheme = proto
		}
	}

	switch {
	case forwardedHost != "":
		u.Host = forwardedHost
	case config.TrustXForwardedHost:
		if host := getLeftmost(header.Get("X-Forwarded-Host")); host != "" {
			u.Host = host
		}
	}

	if config.TrustXForwardedPrefix {
		if prefix := getLeftmost(header.Get("X-Forwarded-Prefix")); prefix != "" {
			u.Path = "/" + strings.Trim(prefix, "/") + u.Path
		}
	}
}

// getLeftmost returns the value closest to the client in a comma separated
// header: "value1, value2" -> "value1".
func getLeftmost(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// parseForwardedHeader reads proto and host from the leftmost entry of an
// RFC 7239 Forwarded header, e.g. "for=192.0.2.60;proto=https;host=api.example.com".
func parseForwardedHeader(forwarded string) (scheme, host string) {
	entry, _, _ := strings.Cut(forwarded, ",")
	for _, part := range strings.Split(entry, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(key) {
		case "proto":
			scheme = value
		case "host":
			host = value
		}
	}
	return scheme, host
}

// normalizePort strips the default port of scheme per RFC 3986 section 6.2.3.
func normalizePort(host, scheme string) string {
	hostPart, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(hostPart, ":") {
			return "[" + hostPart + "]"
		}
		return hostPart
	}
	return host
}
