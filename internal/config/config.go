package config

import (
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Razorpay  RazorpayConfig
	Email     EmailConfig
	Admin     AdminConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the parts
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Database +
		"?sslmode=disable&search_path=" + c.Schema
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	ResetExpiry  time.Duration
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

type EmailConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	UseTLS      bool
	DefaultFrom string
}

type AdminConfig struct {
	Username string
	Email    string
	Password string
}

type SecurityConfig struct {
	AllowedHosts   []string
	CORSOrigins    []string
	TrustedOrigins []string
	CSRFKey        string
	PublicBaseURL  string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_TTL_HOURS", 24*14)
	viper.SetDefault("SESSION_COOKIE_NAME", "sessionid")
	viper.SetDefault("SESSION_COOKIE_SECURE", false)
	viper.SetDefault("PASSWORD_RESET_TIMEOUT_DAYS", 3)
	viper.SetDefault("RAZORPAY_CURRENCY", "INR")
	viper.SetDefault("EMAIL_PORT", 587)
	viper.SetDefault("EMAIL_USE_TLS", true)
	viper.SetDefault("DJANGO_ALLOWED_HOSTS", "*")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	emailUser := viper.GetString("EMAIL_HOST_USER")
	defaultFrom := viper.GetString("DEFAULT_FROM_EMAIL")
	if defaultFrom == "" {
		defaultFrom = emailUser
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			Secret:       viper.GetString("SESSION_SECRET"),
			TTL:          time.Duration(viper.GetInt("SESSION_TTL_HOURS")) * time.Hour,
			CookieName:   viper.GetString("SESSION_COOKIE_NAME"),
			CookieSecure: viper.GetBool("SESSION_COOKIE_SECURE"),
			ResetExpiry:  time.Duration(viper.GetInt("PASSWORD_RESET_TIMEOUT_DAYS")) * 24 * time.Hour,
		},
		Razorpay: RazorpayConfig{
			KeyID:         viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     viper.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: viper.GetString("RAZORPAY_WEBHOOK_SECRET"),
			Currency:      viper.GetString("RAZORPAY_CURRENCY"),
		},
		Email: EmailConfig{
			Host:        viper.GetString("EMAIL_HOST"),
			Port:        viper.GetInt("EMAIL_PORT"),
			User:        emailUser,
			Password:    viper.GetString("EMAIL_HOST_PASSWORD"),
			UseTLS:      viper.GetBool("EMAIL_USE_TLS"),
			DefaultFrom: defaultFrom,
		},
		Admin: AdminConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		Security: SecurityConfig{
			AllowedHosts:   allowedHosts(),
			TrustedOrigins: trustedOrigins(),
			CORSOrigins:    splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			CSRFKey:        viper.GetString("CSRF_KEY"),
			PublicBaseURL:  strings.TrimRight(viper.GetString("PUBLIC_BASE_URL"), "/"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// allowedHosts merges DJANGO_ALLOWED_HOSTS, the Render hostname and, when a
// Razorpay key is configured, the Razorpay callback hosts
func allowedHosts() []string {
	hosts := splitList(viper.GetString("DJANGO_ALLOWED_HOSTS"))
	if len(hosts) == 0 {
		hosts = []string{"*"}
	}

	extra := []string{viper.GetString("RENDER_EXTERNAL_HOSTNAME")}
	if viper.GetString("RAZORPAY_KEY_ID") != "" {
		extra = append(extra, splitList(viper.GetString("RAZORPAY_ALLOWED_HOSTS"))...)
	}

	for _, host := range extra {
		if host == "" || slices.Contains(hosts, host) || slices.Contains(hosts, "*") {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts
}

// trustedOrigins collects scheme://host origins of the deployment URLs
func trustedOrigins() []string {
	var origins []string
	for _, key := range []string{"URL", "DEPLOY_PRIME_URL", "DEPLOY_URL", "RENDER_EXTERNAL_URL"} {
		u, err := url.Parse(viper.GetString(key))
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if !slices.Contains(origins, origin) {
			origins = append(origins, origin)
		}
	}
	slices.Sort(origins)
	return origins
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
