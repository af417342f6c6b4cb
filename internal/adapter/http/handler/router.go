package handler

import (
	"linkpay/internal/adapter/http/middleware"
	"linkpay/internal/adapter/realtime"
	"linkpay/internal/core/ports"
	"linkpay/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// defaultMaxBody bounds JSON request bodies.
const defaultMaxBody = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IdentitySvc    ports.IdentityService
	LedgerSvc      ports.LedgerService
	RequestSvc     ports.RequestService
	ReminderSvc    ports.ReminderService
	TokenSvc       ports.TokenService
	RateLimiter    middleware.Limiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Realtime       *realtime.Handler  // nil = no /ws endpoint
	Metrics        *metrics.Metrics   // nil = no /metrics endpoint
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(middleware.MaxBodySize(defaultMaxBody))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Realtime != nil {
		r.GET("/ws", deps.Realtime.Serve)
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.IdentitySvc)
	auth := v1.Group("/auth/:party")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/google", rl("auth_login"), authHandler.Google)
	}
	v1.POST("/check/phone", rl("auth_login"), authHandler.CheckPhone)

	// --- Session routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	api := v1.Group("", jwtAuth)

	profileHandler := NewProfileHandler(deps.IdentitySvc)
	profile := api.Group("/profile")
	{
		profile.GET("", rl("read"), profileHandler.Get)
		profile.PUT("", rl("profile"), profileHandler.Update)
		profile.POST("/complete", rl("profile"), profileHandler.Complete)
		profile.PUT("/password", rl("profile"), profileHandler.ChangePassword)
		profile.PUT("/pin", rl("profile"), profileHandler.ChangePin)
		profile.POST("/google", rl("profile"), profileHandler.LinkGoogle)
		profile.DELETE("", rl("profile"), profileHandler.Delete)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	links := api.Group("/links")
	{
		links.GET("", rl("read"), ledgerHandler.ListLinks)
		links.POST("", rl("ledger"), ledgerHandler.AddLink)
		links.GET("/:merchant_id/:user_id/balance", rl("read"), ledgerHandler.GetBalance)
		links.GET("/:merchant_id/:user_id/transactions", rl("read"), ledgerHandler.ListLinkTransactions)
	}
	api.GET("/transactions", rl("read"), ledgerHandler.ListTransactions)

	ledger := api.Group("/ledger")
	{
		ledger.POST("/purchase", rl("ledger"), ledgerHandler.Purchase)
		ledger.POST("/add-balance", rl("ledger"), ledgerHandler.AddBalance)
		ledger.POST("/delink", rl("ledger"), ledgerHandler.Delink)
	}

	requestHandler := NewRequestHandler(deps.RequestSvc)
	requests := api.Group("/requests")
	{
		requests.GET("", rl("read"), requestHandler.List)
		requests.POST("/:id", rl("requests"), requestHandler.Create)
		requests.POST("/:id/accept", rl("requests"), requestHandler.Accept)
		requests.POST("/:id/reject", rl("requests"), requestHandler.Reject)
	}

	reminderHandler := NewReminderHandler(deps.ReminderSvc)
	reminders := api.Group("/reminders")
	{
		reminders.GET("", rl("read"), reminderHandler.List)
		reminders.POST("", rl("requests"), reminderHandler.Create)
		reminders.POST("/:id/dismiss", rl("requests"), reminderHandler.Dismiss)
	}
	api.GET("/notifications", rl("read"), reminderHandler.Feed)

	return r
}
