package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// AllowedHostsMiddleware rejects requests whose Host header is not listed.
// "*" allows any host and an entry starting with "." also matches its
// subdomains.
func AllowedHostsMiddleware(allowed []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HostAllowed(r.Host, allowed) {
				logger.Warn("Rejected request for unknown host", zap.String("host", r.Host))
				RespondWithError(w, http.StatusBadRequest, "invalid host header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HostAllowed matches a request host, with or without port, against the list
func HostAllowed(host string, allowed []string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	for _, pattern := range allowed {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

// CSRFConfig configures CSRFMiddleware
type CSRFConfig struct {
	Key []byte
	// Secure marks the site as served over HTTPS. Unsafe requests without an
	// Origin header must then carry a same-origin or trusted Referer. When
	// false, requests are treated as plain HTTP and only Origin is checked.
	Secure         bool
	TrustedOrigins []string
	// ExemptPrefixes are paths called by third parties that cannot carry a token
	ExemptPrefixes []string
}

// CSRFMiddleware protects unsafe methods with a double submit token. The
// current token is returned in the X-CSRF-Token response header.
func CSRFMiddleware(cfg CSRFConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		cfg.Key,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(TrustedHosts(cfg.TrustedOrigins)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("CSRF check failed",
				zap.String("path", r.URL.Path),
				zap.Error(csrf.FailureReason(r)),
			)
			RespondWithError(w, http.StatusForbidden, "CSRF verification failed")
		})),
	)

	return func(next http.Handler) http.Handler {
		withToken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-CSRF-Token", csrf.Token(r))
			next.ServeHTTP(w, r)
		})
		protected := protect(withToken)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			for _, prefix := range cfg.ExemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					r = csrf.UnsafeSkipCheck(r)
					break
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// TrustedHosts reduces scheme://host origins to the host form the CSRF
// referer check compares against
func TrustedHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if _, rest, ok := strings.Cut(origin, "://"); ok {
			origin = rest
		}
		origin = strings.TrimRight(origin, "/")
		if origin != "" {
			hosts = append(hosts, origin)
		}
	}
	return hosts
}
