package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/stray-saver/internal/api/auth"
	"github.com/wzyjerry/stray-saver/internal/api/report"
	"github.com/wzyjerry/stray-saver/internal/pkg/logger"
	"github.com/wzyjerry/stray-saver/internal/pkg/metrics"
	"github.com/wzyjerry/stray-saver/internal/service"
	"github.com/wzyjerry/stray-saver/internal/session"
	"github.com/wzyjerry/stray-saver/internal/web"
	"go.uber.org/zap"
)

// Deps are the handles the routes need. cmd/straysaver builds them once.
type Deps struct {
	Reports  *service.ReportService
	Auth     *service.AuthService
	Uploads  *service.Uploads
	Sessions *session.Manager
	Limiter  *service.AttemptLimiter
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// MaxUploadBytes limits image uploads; report bodies are capped a little above it.
	MaxUploadBytes int64
}

// NewEngine returns a gin engine with the page templates loaded and every
// route registered.
func NewEngine(deps Deps) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	if deps.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.MaxUploadBytes
	}
	SetupRouter(r, deps)
	return r, nil
}

// SetupRouter configures all routes
func SetupRouter(r *gin.Engine, deps Deps) {
	r.Use(gin.Recovery())
	r.Use(logger.GinLogger(deps.Log))
	r.Use(deps.Metrics.Middleware())
	r.Use(deps.Sessions.Load())

	reports := report.NewHandler(deps.Reports, deps.MaxUploadBytes, deps.Log)
	accounts := auth.NewHandler(deps.Auth, deps.Sessions, deps.Limiter, deps.Metrics, deps.Log)

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.Static("/uploads", deps.Uploads.Dir())

	// Auth routes (no session required)
	r.GET("/signup", accounts.SignupPage)
	r.POST("/signup", accounts.Signup)
	r.GET("/login", accounts.LoginPage)
	r.POST("/login", accounts.Login)
	r.GET("/logout", accounts.Logout)

	r.GET("/", reports.Home)

	// Routes that require a session
	gated := r.Group("/")
	gated.Use(deps.Sessions.RequireSession())
	{
		gated.POST("/", reports.Create)
		gated.POST("/submit", reports.Submit)
		gated.GET("/submission_success", reports.Success)
		gated.GET("/dashboard", reports.Dashboard)
		gated.GET("/reports/:id", reports.Detail)
	}
}
