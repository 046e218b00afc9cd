package middleware

import (
	"maps"
	"net/http"
)

// SecurityHeadersConfig configures the security headers middleware.
// It provides fine-grained control over HTTP security headers.
type SecurityHeadersConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// ContentTypeOptions controls X-Content-Type-Options header
	ContentTypeOptions string

	// FrameOptions controls X-Frame-Options header
	FrameOptions string

	// XSSProtection controls X-XSS-Protection header
	XSSProtection string

	// StrictTransportSecurity controls Strict-Transport-Security header
	StrictTransportSecurity string

	// ContentSecurityPolicy controls Content-Security-Policy header
	ContentSecurityPolicy string

	// ReferrerPolicy controls Referrer-Policy header
	ReferrerPolicy string

	// PermissionsPolicy controls Permissions-Policy header
	PermissionsPolicy string

	// RemoveHeaders lists response headers to delete so the serving
	// technology is not disclosed
	RemoveHeaders []string

	// CustomHeaders allows adding additional custom security headers
	CustomHeaders map[string]string

	// IsDevelopment disables HSTS for local HTTP development
	IsDevelopment bool
}

// StrictSecurity is the default-deny policy for the public API surface:
// no framing, no MIME sniffing, no dangerous browser features, same-origin
// scripts and styles with HTTPS-sourced media only, preload-eligible HSTS.
var StrictSecurity = SecurityHeadersConfig{
	ContentTypeOptions:      "nosniff",
	FrameOptions:            "DENY",
	XSSProtection:           "0",
	StrictTransportSecurity: "max-age=63072000; includeSubDomains; preload",
	ContentSecurityPolicy: "default-src 'none'; script-src 'self'; style-src 'self'; " +
		"img-src 'self' data: https:; media-src https:; font-src 'self'; connect-src 'self'; " +
		"object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",
	ReferrerPolicy:    "strict-origin-when-cross-origin",
	PermissionsPolicy: "geolocation=(), microphone=(), camera=()",
	RemoveHeaders:     []string{"X-Powered-By", "Server"},
}

// BalancedSecurity relaxes the CSP for pages that embed remote images and
// inline styles while keeping the rest of the strict posture. HSTS stays on
// without preload.
var BalancedSecurity = SecurityHeadersConfig{
	ContentTypeOptions:      "nosniff",
	FrameOptions:            "DENY",
	XSSProtection:           "0",
	StrictTransportSecurity: "max-age=31536000; includeSubDomains",
	ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https:; media-src https:; font-src 'self' data:; connect-src 'self'; " +
		"object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",
	ReferrerPolicy:    "strict-origin-when-cross-origin",
	PermissionsPolicy: "geolocation=(), microphone=(), camera=()",
	RemoveHeaders:     []string{"X-Powered-By", "Server"},
}

// DevelopmentSecurity keeps the response-hardening headers but drops HSTS so
// plain-HTTP local setups keep working. Never use in production.
var DevelopmentSecurity = SecurityHeadersConfig{
	ContentTypeOptions: "nosniff",
	FrameOptions:       "DENY",
	XSSProtection:      "0",
	ReferrerPolicy:     "strict-origin-when-cross-origin",
	PermissionsPolicy:  "geolocation=(), microphone=(), camera=()",
	RemoveHeaders:      []string{"X-Powered-By", "Server"},
	IsDevelopment:      true,
}

// SecurityHeaders creates a security headers middleware with the strict
// configuration.
func SecurityHeaders() Middleware {
	return SecurityHeadersWithConfig(StrictSecurity)
}

// SecurityHeadersWithConfig creates a security headers middleware with custom
// configuration. Headers are precomputed once at construction.
func SecurityHeadersWithConfig(cfg SecurityHeadersConfig) Middleware {
	if cfg.IsDevelopment {
		cfg.StrictTransportSecurity = ""
	}

	// Pre-build the header map to avoid per-request branching.
	headers := make(map[string]string)
	if cfg.ContentTypeOptions != "" {
		headers["X-Content-Type-Options"] = cfg.ContentTypeOptions
	}
	if cfg.FrameOptions != "" {
		headers["X-Frame-Options"] = cfg.FrameOptions
	}
	if cfg.XSSProtection != "" {
		headers["X-XSS-Protection"] = cfg.XSSProtection
	}
	if cfg.StrictTransportSecurity != "" {
		headers["Strict-Transport-Security"] = cfg.StrictTransportSecurity
	}
	if cfg.ContentSecurityPolicy != "" {
		headers["Content-Security-Policy"] = cfg.ContentSecurityPolicy
	}
	if cfg.ReferrerPolicy != "" {
		headers["Referrer-Policy"] = cfg.ReferrerPolicy
	}
	if cfg.PermissionsPolicy != "" {
		headers["Permissions-Policy"] = cfg.PermissionsPolicy
	}
	maps.Copy(headers, cfg.CustomHeaders)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			for key, value := range headers {
				w.Header().Set(key, value)
			}
			for _, key := range cfg.RemoveHeaders {
				w.Header().Del(key)
			}

			next.ServeHTTP(w, r)
		})
	}
}
