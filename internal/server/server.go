package server

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/mailer"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/session"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Paths called by the payment gateway, which cannot carry a CSRF token
var csrfExemptPaths = []string{"/payment_success/", "/payment/webhook/"}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

// Dependencies are the external clients the server is built on
type Dependencies struct {
	Gateway gateway.Gateway
	Mailer  mailer.Mailer
}

// NewServer builds the server from configuration, creating the Redis client,
// payment gateway and mailer
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	deps := Dependencies{
		Gateway: gateway.NewRazorpay(cfg.Razorpay),
		Mailer:  mailer.NewSMTP(cfg.Email),
	}

	return NewServerWith(cfg, logger, db, redisClient, deps)
}

// NewServerWith builds the server on already constructed clients
func NewServerWith(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, deps Dependencies) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	adRepo := repository.NewCarouselAdRepository(db)
	contactRepo := repository.NewContactRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Sessions
	sessions := session.NewManager(redisClient, cfg.Session.Secret, cfg.Session.TTL)
	resetTokens := session.NewResetTokens(cfg.Session.Secret, cfg.Session.ResetExpiry)

	// Initialize services
	userService := service.NewUserService(userRepo, sessions, resetTokens, deps.Mailer, logger)
	catalogService := service.NewCatalogService(productRepo, adRepo, logger)
	contactService := service.NewContactService(contactRepo, logger)
	checkoutService := service.NewCheckoutService(orderRepo, deps.Gateway, cfg.Razorpay.Currency, logger)
	profileService := service.NewProfileService(orderRepo)
	dashboardService := service.NewDashboardService(reportRepo, productRepo, contactRepo, adRepo)
	csvService := service.NewCSVService(contactRepo, orderRepo, logger)
	adminService := service.NewAdminService(productRepo, adRepo, orderRepo, logger)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(
		userService,
		transport.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		cfg.Security.PublicBaseURL,
		logger,
	)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	contactHandler := transport.NewContactHandler(contactService, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)
	profileHandler := transport.NewProfileHandler(profileService, userService, logger)
	adminHandler := transport.NewAdminHandler(dashboardService, csvService, adminService, logger)

	// Create middlewares
	requireSession := custommiddleware.RequireSession(logger)
	requireStaff := custommiddleware.RequireStaff(logger)
	authLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rl:auth",
	}, logger)
	contactLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rl:contact",
	}, logger)

	// Register routes
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.AllowedHostsMiddleware(cfg.Security.AllowedHosts, logger))
		r.Use(custommiddleware.CORSMiddleware(cfg.Security.CORSOrigins, !cfg.IsProduction()))
		r.Use(custommiddleware.CSRFMiddleware(custommiddleware.CSRFConfig{
			Key:            csrfKey(cfg),
			Secure:         cfg.Session.CookieSecure,
			TrustedOrigins: cfg.Security.TrustedOrigins,
			ExemptPrefixes: csrfExemptPaths,
		}, logger))
		r.Use(custommiddleware.SessionMiddleware(sessions, cfg.Session.CookieName, logger))
		r.Use(custommiddleware.LoggingMiddleware(logger))

		catalogHandler.RegisterRoutes(r)
		contactHandler.RegisterRoutes(r, contactLimit)
		authHandler.RegisterRoutes(r, authLimit)
		checkoutHandler.RegisterRoutes(r, requireSession)
		profileHandler.RegisterRoutes(r, requireSession)
		adminHandler.RegisterRoutes(r, requireSession, requireStaff)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

// csrfKey derives the 32 byte CSRF authentication key
func csrfKey(cfg *config.Config) []byte {
	secret := cfg.Security.CSRFKey
	if secret == "" {
		secret = cfg.Session.Secret
	}
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
