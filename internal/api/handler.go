// Package api is the operator HTTP interface: employee records, photo
// ingestion, templates and print exports.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idcards/internal/auth"
	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/export"
	"idcards/internal/httpmiddleware"
	"idcards/internal/photo"
)

// AuthConfig configures operator tokens.
type AuthConfig struct {
	Issuer       string
	SigningKey   string
	OperatorHash string // bcrypt hash of the shared operator secret
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

type Deps struct {
	Employees       *employee.Service
	Templates       *cardtemplate.Store
	Photos          *photo.Processor
	Exports         *export.Service
	Auth            AuthConfig
	DefaultTemplate string
	DefaultScale    float64
	RateLimitPerMin int
	MaxUploadBytes  int64
	Checks          map[string]func(context.Context) bool
	Log             *slog.Logger
}

type Handler struct {
	employees       *employee.Service
	templates       *cardtemplate.Store
	photos          *photo.Processor
	exports         *export.Service
	auth            AuthConfig
	defaultTemplate string
	defaultScale    float64
	rateLimit       int
	maxUpload       int64
	checks          map[string]func(context.Context) bool
	log             *slog.Logger
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.DefaultScale <= 0 {
		d.DefaultScale = card.DefaultCaptureScale
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 64 << 20
	}
	if d.RateLimitPerMin <= 0 {
		d.RateLimitPerMin = 120
	}
	return &Handler{
		employees:       d.Employees,
		templates:       d.Templates,
		photos:          d.Photos,
		exports:         d.Exports,
		auth:            d.Auth,
		defaultTemplate: d.DefaultTemplate,
		defaultScale:    d.DefaultScale,
		rateLimit:       d.RateLimitPerMin,
		maxUpload:       d.MaxUploadBytes,
		checks:          d.Checks,
		log:             d.Log,
	}
}

// Router wires middleware and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition", "X-Export-Message", "X-Export-Pages", "X-Export-Warnings", "X-Artifact-Location"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	anon := httpmiddleware.NewSimpleTokenBucket(10, 10)
	r.POST("/v1/operators/token", anon.GinMiddleware(httpmiddleware.ClientIP), h.IssueToken)
	r.POST("/v1/operators/refresh", anon.GinMiddleware(httpmiddleware.ClientIP), h.RefreshToken)

	limiter := httpmiddleware.NewSimpleTokenBucket(h.rateLimit, h.rateLimit)
	v1 := r.Group("/v1",
		auth.OperatorAuth(h.auth.SigningKey, h.auth.Issuer),
		limiter.GinMiddleware(auth.Subject),
	)
	{
		v1.POST("/employees", h.SaveEmployees)
		v1.GET("/employees", h.ListEmployees)
		v1.GET("/employees/:employee_id", h.GetEmployee)
		v1.POST("/employees/:employee_id/photo", h.UploadPhoto)
		v1.POST("/photos/bulk", h.BulkPhotos)

		v1.GET("/templates", h.ListTemplates)

		v1.POST("/exports", h.CreateExport)
		v1.POST("/exports/single/:employee_id", h.SingleExport)
		v1.GET("/exports/:job_id", h.ExportStatus)
	}
	return r
}

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	out := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		out[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			out["status"] = "degraded"
		}
	}
	c.JSON(status, out)
}

type tokenRequest struct {
	Operator string `json:"operator" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := auth.CheckSecret(h.auth.OperatorHash, req.Secret); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	h.issue(c, req.Operator)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken trades a valid refresh token for a new token pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.auth.SigningKey, h.auth.Issuer)
	if err != nil || claims.Kind != "refresh" || claims.Role != auth.RoleOperator {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issue(c, claims.Subject)
}

func (h *Handler) issue(c *gin.Context, operator string) {
	tokens, err := auth.Issue(operator, auth.RoleOperator, h.auth.Issuer, h.auth.SigningKey, h.auth.AccessTTL, h.auth.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (h *Handler) ListTemplates(c *gin.Context) {
	type item struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		HasBack bool   `json:"has_back"`
	}
	out := []item{}
	for _, id := range h.templates.IDs() {
		t, err := h.templates.Get(id)
		if err != nil {
			continue
		}
		out = append(out, item{ID: t.ID, Name: t.Name, HasBack: t.Back != nil})
	}
	c.JSON(http.StatusOK, gin.H{"templates": out, "default": h.defaultTemplate})
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
