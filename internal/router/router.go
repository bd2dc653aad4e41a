package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantalab/lims-api/internal/middleware"
	"github.com/quantalab/lims-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// PortalHandler additionally serves routes that patient tokens may reach.
type PortalHandler interface {
	Handler
	RegisterPatientRoutes(*gin.RouterGroup)
}

type Config struct {
	Mode           string
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	healthH      Handler
	catalogH     Handler
	appointmentH Handler
	testResultH  PortalHandler
}

func New(
	config Config,
	auth *middleware.AuthMiddleware,
	healthH Handler,
	catalogH Handler,
	appointmentH Handler,
	testResultH PortalHandler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	registerValidators()

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	if config.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:       engine,
		auth:         auth,
		healthH:      healthH,
		catalogH:     catalogH,
		appointmentH: appointmentH,
		testResultH:  testResultH,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.healthH.RegisterRoutes(r.engine.Group(""))

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())

	staff := api.Group("")
	staff.Use(middleware.RequireRoles(
		model.RoleAdmin,
		model.RoleReceptionist,
		model.RoleMedTech,
		model.RolePathologist,
	))
	r.catalogH.RegisterRoutes(staff)
	r.appointmentH.RegisterRoutes(staff)
	r.testResultH.RegisterRoutes(staff)

	// The portal endpoint must stay reachable by patient tokens; it checks
	// ownership itself.
	r.testResultH.RegisterPatientRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("sex", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "male", "female", "other":
				return true
			}
			return false
		})
	}
}
