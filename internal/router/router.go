package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/handler"
)

// Options 配置路由所需的外部依赖。
type Options struct {
	SessionSecret string
	// Gatherer 不为空时挂载 /metrics。
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Log))

	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = "tutorialcms-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, MaxAge: 7 * 24 * 3600})
	r.Use(sessions.Sessions("tutorialcms_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// 前台只读路由
	r.GET("/tutorials/:slug", api.ShowTutorial)
	r.GET("/pages/:slug", api.ShowPage)

	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		adminAPI := admin.Group("/api", handler.AuthRequired())
		{
			adminAPI.GET("/tutorials", api.ListTutorials)
			adminAPI.POST("/tutorials", api.CreateTutorial)
			adminAPI.GET("/tutorials/:id", api.GetTutorial)
			adminAPI.PUT("/tutorials/:id", api.UpdateTutorial)
			adminAPI.DELETE("/tutorials/:id", api.DeleteTutorial)

			adminAPI.GET("/pages", api.ListPages)
			adminAPI.POST("/pages", api.CreatePage)
			adminAPI.GET("/pages/:id", api.GetPage)
			adminAPI.PUT("/pages/:id", api.UpdatePage)
			adminAPI.DELETE("/pages/:id", api.DeletePage)

			registerLifecycleRoutes(adminAPI.Group("/tutorials/:id"), api, db.ContentTutorial)
			registerLifecycleRoutes(adminAPI.Group("/pages/:id"), api, db.ContentPage)

			adminAPI.GET("/scheduled-actions", api.ListScheduledActions)
			adminAPI.DELETE("/scheduled-actions/:id", api.CancelScheduledAction)
			adminAPI.POST("/scheduled-actions/execute", api.ExecuteDue)
		}
	}

	return r
}

func registerLifecycleRoutes(group *gin.RouterGroup, api *handler.API, t db.ContentType) {
	group.POST("/versions", api.CreateVersion(t))
	group.GET("/versions", api.ListVersions(t))
	group.GET("/versions/:version", api.GetVersion(t))
	group.GET("/versions/:version/preview", api.PreviewVersion(t))
	group.POST("/versions/:version/restore", api.RestoreVersion(t))
	group.POST("/schedule", api.ScheduleAction(t))
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
