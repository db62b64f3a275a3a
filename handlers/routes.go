package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"milestone_dashboard/middleware"
	"milestone_dashboard/services"
)

// Limits are the rate limiters guarding writes and exports. Nil limiters
// are skipped.
type Limits struct {
	Mutation *middleware.RateLimiter
	Upload   *middleware.RateLimiter
	Export   *middleware.RateLimiter
	// UploadBody caps an upload request body, in echo's size syntax ("50M").
	UploadBody string
	// FormBody caps every other request body. Defaults to DefaultFormBody.
	FormBody string
}

// DefaultFormBody is the body limit for requests other than uploads.
const DefaultFormBody = "1M"

// isUpload matches the evidence upload routes before routing has run.
func isUpload(c echo.Context) bool {
	r := c.Request()
	return r.Method == http.MethodPost &&
		strings.HasPrefix(r.URL.Path, "/contractor/projects/") &&
		(strings.HasSuffix(r.URL.Path, "/documents") || strings.HasSuffix(r.URL.Path, "/photos"))
}

func limit(rl *middleware.RateLimiter) []echo.MiddlewareFunc {
	if rl == nil {
		return nil
	}
	return []echo.MiddlewareFunc{rl.Middleware()}
}

// RegisterRoutes mounts every dashboard route on e.
func RegisterRoutes(e *echo.Echo, h *Handler, limits Limits) {
	e.GET("/healthz", HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", h.HomeHandler)

	// Body limits run before any middleware that reads a form, CSRF included.
	formBody := limits.FormBody
	if formBody == "" {
		formBody = DefaultFormBody
	}
	e.Pre(echomiddleware.BodyLimitWithConfig(echomiddleware.BodyLimitConfig{
		Limit:   formBody,
		Skipper: isUpload,
	}))
	if limits.UploadBody != "" {
		e.Pre(echomiddleware.BodyLimitWithConfig(echomiddleware.BodyLimitConfig{
			Limit:   limits.UploadBody,
			Skipper: func(c echo.Context) bool { return !isUpload(c) },
		}))
	}

	mutation := limit(limits.Mutation)
	upload := limit(limits.Upload)

	contractor := e.Group("/contractor")
	contractor.GET("", h.ContractorPageHandler)
	contractor.GET("/stats", h.ContractorStatsHandler)
	contractor.GET("/projects", h.ContractorProjectsHandler)
	contractor.POST("/projects/:pid/milestones/:mid/submit", h.SubmitMilestoneHandler, mutation...)
	contractor.GET("/projects/:pid/milestones/:mid/evidence", h.EvidenceListHandler)
	contractor.POST("/projects/:pid/milestones/:mid/documents", h.UploadEvidenceHandler(services.EvidenceDocuments), upload...)
	contractor.POST("/projects/:pid/milestones/:mid/photos", h.UploadEvidenceHandler(services.EvidencePhotos), upload...)
	if h.filesURL != "" {
		e.GET(h.filesURL+"/*", h.EvidenceFileHandler)
	}

	government := e.Group("/government")
	government.GET("", h.GovernmentPageHandler)
	government.GET("/stats", h.GovernmentStatsHandler)
	government.GET("/projects", h.GovernmentProjectsHandler)
	government.POST("/projects", h.CreateProjectHandler, mutation...)

	auditor := e.Group("/auditor")
	auditor.GET("", h.AuditorPageHandler)
	auditor.GET("/verifications", h.PendingVerificationsHandler)
	auditor.POST("/milestones/:mid/verify", h.VerifyMilestoneHandler, mutation...)

	public := e.Group("/public")
	public.GET("", h.PublicPageHandler)
	public.GET("/stats", h.PublicStatsHandler)
	public.GET("/projects", h.PublicProjectsHandler)
	public.GET("/transactions.xlsx", h.ExportLedgerHandler, limit(limits.Export)...)
}
