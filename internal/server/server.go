package server

import (
	"context"
	"net/http"
	"time"

	"vibes/internal/auth"
	"vibes/internal/booking"
	"vibes/internal/config"
	"vibes/internal/email"
	"vibes/internal/gateway"
	"vibes/internal/ledger"
	"vibes/internal/settlement"
	"vibes/internal/user"
	"vibes/internal/vendor"
	"vibes/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service, gw gateway.Gateway) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	vendorRepo := vendor.NewRepository(db)

	userService := user.NewService(userRepo, cfg.JWTSecret)
	settlementService := settlement.NewService(
		bookingRepo, ledgerRepo, walletRepo, vendorRepo, userRepo,
		gw, emailService, cfg.PlatformFeePct, cfg.AdminRole,
	)

	userHandler := user.NewHandler(userService, cfg.JWTSecret)
	bookingHandler := booking.NewHandler(bookingRepo, cfg.Currency, cfg.AdminRole)
	walletHandler := wallet.NewHandler(walletRepo)
	vendorHandler := vendor.NewHandler(vendorRepo)
	ledgerHandler := ledger.NewHandler(ledgerRepo, cfg.AdminRole)
	settlementHandler := settlement.NewHandler(settlementService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)

		protected.GET("/vendors/:vendorID/terms", vendorHandler.GetTerms)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.GET("/wallet/entries", walletHandler.GetEntries)

		protected.GET("/transactions", ledgerHandler.ListMyTransactions)
		protected.GET("/transactions/:transactionID", ledgerHandler.GetTransaction)

		protected.GET("/bookings/:bookingID/refund-quote", settlementHandler.GetRefundQuote)
		protected.GET("/payments/:intentID", settlementHandler.CheckStatus)
	}

	// Money-moving routes carry a tighter rate limit; a runaway client
	// retrying a charge is worse than a runaway client reading it.
	settling := router.Group("/")
	settling.Use(authMiddleware, RateLimitMiddleware(5, 10))
	{
		settling.POST("/bookings/:bookingID/pay", settlementHandler.Pay)
		settling.POST("/payments/:intentID/confirm", settlementHandler.ConfirmPay)
		settling.POST("/bookings/:bookingID/cancel", settlementHandler.Cancel)
		settling.POST("/bookings/:bookingID/reschedule", settlementHandler.Reschedule)
	}

	adminMiddleware := auth.RequireRole(cfg.AdminRole)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.PUT("/vendors/:vendorID/terms", vendorHandler.PutTerms)
		admin.GET("/bookings/:bookingID/transactions", ledgerHandler.ListBookingTransactions)
	}

	router.GET("/health", Health(db))
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(emailService))

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
