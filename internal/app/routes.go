package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/events"
	"tasktracker/internal/handlers"
	"tasktracker/internal/logging"
	"tasktracker/internal/metrics"
	"tasktracker/internal/repo"
	"tasktracker/internal/service"

	_ "tasktracker/docs"
)

// Deps are the opened backends the router is built on.
type Deps struct {
	Tasks    repo.TaskRepo
	Users    repo.UserRepo
	Redis    *redis.Client
	Events   events.Publisher
	Registry *prometheus.Registry
	Log      *zap.Logger
}

// NewRouter builds the engine with middleware and every route.
func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	m := metrics.New(d.Registry)

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(d.Log), m.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Cookie"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))
	r.SetHTMLTemplate(handlers.Templates())

	Setup(r, cfg, d, m)
	return r
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, d Deps, m *metrics.Metrics) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	storeOpts := []service.StoreOption{
		service.WithEvents(d.Events),
		service.WithMetrics(m),
		service.WithLogger(d.Log),
	}
	if cfg.Cache.Enabled {
		storeOpts = append(storeOpts, service.WithCache(cache.NewTaskCache(d.Redis, cfg.Redis.DefaultTTL.Duration())))
	}
	policy, err := service.ParsePolicy(cfg.Tasks.ForeignAccess)
	if err != nil {
		// config.Load rejects unknown policies; a hand-built Config falls back to the default.
		d.Log.Warn("foreign access policy", zap.Error(err))
	}
	taskSvc := service.NewTaskService(service.NewTaskStore(d.Tasks, storeOpts...), service.NewGuard(policy))

	sessionStore := auth.NewStore(d.Redis, cfg.Session.TTL.Duration())
	userSvc := service.NewUserService(d.Users)
	authHandler := handlers.NewAuthHandler(sessionStore, userSvc, d.Log)
	taskHandler := handlers.NewTaskHandler(taskSvc, d.Log)
	webHandler := handlers.NewWebHandler(taskSvc, authHandler, d.Log)

	api := r.Group("/api/v1")
	registerAuthRoutes(api, authHandler, sessionStore)
	registerTaskRoutes(api.Group("", auth.RequireSession(sessionStore)), taskHandler)
	registerWebRoutes(r.Group("/app"), webHandler, sessionStore)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Task Tracker API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"openapi": "/swagger-doc.json",
			"health":  "/health",
			"metrics": "/metrics",
			"api":     "/api/v1",
			"app":     "/app/tasks",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.POST("/tasks", h.Create)
	api.GET("/tasks", h.List)
	api.GET("/tasks/:id", h.Get)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/toggle", h.Toggle)
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler, sessions *auth.Store) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", auth.RequireSession(sessions), h.Me)
}

func registerWebRoutes(g *gin.RouterGroup, h *handlers.WebHandler, sessions *auth.Store) {
	g.GET("/login", h.LoginPage)
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.POST("/logout", h.Logout)

	pages := g.Group("", auth.RequireSessionOrRedirect(sessions, "/app/login"))
	pages.GET("/tasks", h.List)
	pages.POST("/tasks", h.Create)
	pages.POST("/tasks/:id/toggle", h.Toggle)
	pages.POST("/tasks/:id/delete", h.Delete)
}
