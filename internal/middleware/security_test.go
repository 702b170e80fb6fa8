package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHostAllowed(t *testing.T) {
	allowed := []string{"shop.example.com", ".onrender.com"}

	assert.True(t, HostAllowed("shop.example.com", allowed))
	assert.True(t, HostAllowed("SHOP.example.com:8080", allowed))
	assert.True(t, HostAllowed("natural.onrender.com", allowed))
	assert.True(t, HostAllowed("onrender.com", allowed))
	assert.False(t, HostAllowed("evil.com", allowed))
	assert.False(t, HostAllowed("shop.example.com.evil.com", allowed))
	assert.True(t, HostAllowed("anything", []string{"*"}))
	assert.False(t, HostAllowed("anything", nil))
}

func TestAllowedHostsMiddleware(t *testing.T) {
	handler := AllowedHostsMiddleware([]string{"shop.example.com"}, zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "http://shop.example.com/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "http://attacker.test/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrustedHosts(t *testing.T) {
	assert.Equal(t,
		[]string{"shop.example.com", "shop.onrender.com:8443"},
		TrustedHosts([]string{"https://shop.example.com", "https://shop.onrender.com:8443/", ""}),
	)
}

func newCSRFHandler() http.Handler {
	return newCSRFHandlerWith(false)
}

func newCSRFHandlerWith(secure bool) http.Handler {
	cfg := CSRFConfig{
		Key:            []byte(strings.Repeat("k", 32)),
		Secure:         secure,
		TrustedOrigins: []string{"https://checkout.example.com"},
		ExemptPrefixes: []string{"/payment_success/", "/payment/webhook/"},
	}
	return CSRFMiddleware(cfg, zap.NewNop())(okHandler())
}

// issueCSRF performs a safe request and returns the token and cookies it issued
func issueCSRF(t *testing.T, handler http.Handler, target string) (string, []*http.Cookie) {
	t.Helper()
	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, get.Code)

	token := get.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := get.Result().Cookies()
	require.NotEmpty(t, cookies)
	return token, cookies
}

func csrfPost(handler http.Handler, target, token string, cookies []*http.Cookie, header map[string]string) int {
	post := httptest.NewRequest(http.MethodPost, target, nil)
	post.Header.Set("X-CSRF-Token", token)
	for k, v := range header {
		post.Header.Set(k, v)
	}
	for _, c := range cookies {
		post.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, post)
	return w.Code
}

func TestCSRFOriginAndRefererChecks(t *testing.T) {
	const target = "https://shop.example.com/checkout/"

	secure := newCSRFHandlerWith(true)
	token, cookies := issueCSRF(t, secure, target)

	cases := []struct {
		name   string
		header map[string]string
		status int
	}{
		{name: "no origin or referer", status: http.StatusForbidden},
		{name: "same origin referer", header: map[string]string{"Referer": "https://shop.example.com/checkout/"}, status: http.StatusOK},
		{name: "trusted referer", header: map[string]string{"Referer": "https://checkout.example.com/pay"}, status: http.StatusOK},
		{name: "foreign referer", header: map[string]string{"Referer": "https://evil.test/"}, status: http.StatusForbidden},
		{name: "same origin", header: map[string]string{"Origin": "https://shop.example.com"}, status: http.StatusOK},
		{name: "foreign origin", header: map[string]string{"Origin": "https://evil.test"}, status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, csrfPost(secure, target, token, cookies, tc.header))
		})
	}

	plain := newCSRFHandlerWith(false)
	token, cookies = issueCSRF(t, plain, "http://localhost:8080/checkout/")
	assert.Equal(t, http.StatusOK, csrfPost(plain, "http://localhost:8080/checkout/", token, cookies, nil))
	assert.Equal(t, http.StatusForbidden, csrfPost(plain, "http://localhost:8080/checkout/", token, cookies,
		map[string]string{"Origin": "http://evil.test"}))
}

func TestCSRFRejectsUnsafeRequestsWithoutToken(t *testing.T) {
	handler := newCSRFHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFExemptPaths(t *testing.T) {
	handler := newCSRFHandler()

	for _, path := range []string{"/payment_success/", "/payment/webhook/"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCSRFAcceptsIssuedToken(t *testing.T) {
	handler := newCSRFHandler()

	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/checkout/", nil))
	require.Equal(t, http.StatusOK, get.Code)

	token := get.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := get.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := httptest.NewRequest(http.MethodPost, "/checkout/", nil)
	post.Header.Set("X-CSRF-Token", token)
	for _, c := range cookies {
		post.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, post)
	assert.Equal(t, http.StatusOK, w.Code)
}
