package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"milestone_dashboard/middleware"
	"milestone_dashboard/services"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/services/query"
	"milestone_dashboard/templates/components"
	"milestone_dashboard/templates/partials"
)

// EvidenceFormField is the multipart field carrying the files.
const EvidenceFormField = "files"

var errEvidenceUnavailable = errors.New("Failed to load evidence")

// EvidenceListHandler renders the files attached to a milestone.
func (h *Handler) EvidenceListHandler(c echo.Context) error {
	projectID, err := paramID(c, "pid")
	if err != nil {
		return err
	}
	milestoneID, err := paramID(c, "mid")
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, partials.EvidenceList(projectID, milestoneID, h.listEvidence(c, projectID, milestoneID)))
}

// UploadEvidenceHandler stores documents or photos for a milestone, then
// swaps in the refreshed list with the outcome toast out of band.
func (h *Handler) UploadEvidenceHandler(kind services.EvidenceKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		projectID, err := paramID(c, "pid")
		if err != nil {
			return err
		}
		milestoneID, err := paramID(c, "mid")
		if err != nil {
			return err
		}

		// The milestone is checked before the body is read.
		if _, err := h.contractor.OpenMilestone(ctx, projectID, milestoneID); err != nil {
			return rejectUpload(c, projectID, milestoneID, err)
		}

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
		}

		var toast dashboard.Toast
		stored, err := h.evidence.Upload(ctx, projectID, milestoneID, kind, form.File[EvidenceFormField])
		switch {
		case errors.Is(err, services.ErrInvalidEvidence):
			toast = dashboard.ErrorToast(ctx, "toast.upload.invalid", map[string]interface{}{"reason": err.Error()})
		case err != nil:
			toast = dashboard.ErrorToast(ctx, "toast.upload.failed")
		default:
			toast = dashboard.SuccessToast(ctx, "toast.upload.success_title", "toast.upload.success", map[string]interface{}{"count": len(stored)})
		}

		if !isHTMX(c) {
			return c.Redirect(http.StatusSeeOther, "/contractor")
		}
		return render(c, http.StatusOK, partials.EvidenceUploaded(projectID, milestoneID, h.listEvidence(c, projectID, milestoneID), toast))
	}
}

// rejectUpload answers an upload aimed at a milestone that cannot take
// evidence. htmx gets the toast in the toast region.
func rejectUpload(c echo.Context, projectID, milestoneID int64, err error) error {
	ctx := c.Request().Context()
	status, key := http.StatusBadGateway, "toast.upload.failed"
	switch {
	case errors.Is(err, dashboard.ErrMilestoneNotFound):
		status, key = http.StatusNotFound, "toast.upload.unknown_milestone"
	case errors.Is(err, dashboard.ErrMilestoneClosed):
		status, key = http.StatusConflict, "toast.upload.closed"
	default:
		middleware.Logger(c).Warn("Failed to check milestone before upload",
			zap.Int64("project_id", projectID),
			zap.Int64("milestone_id", milestoneID),
			zap.Error(err),
		)
	}
	toast := dashboard.ErrorToast(ctx, key)
	if !isHTMX(c) {
		return echo.NewHTTPError(status, toast.Description)
	}
	retargetToToasts(c)
	return render(c, status, components.Toast(toast))
}

// EvidenceFileHandler serves a locally stored evidence file as a download.
func (h *Handler) EvidenceFileHandler(c echo.Context) error {
	key, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return echo.ErrNotFound
	}
	body, contentType, err := h.evidence.Open(c.Request().Context(), key)
	if errors.Is(err, services.ErrObjectNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	defer body.Close()

	header := c.Response().Header()
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	header.Set(echo.HeaderContentDisposition, services.AttachmentDisposition(key))
	return c.Stream(http.StatusOK, contentType, body)
}

func (h *Handler) listEvidence(c echo.Context, projectID, milestoneID int64) query.State[[]services.EvidenceFile] {
	files, err := h.evidence.List(c.Request().Context(), projectID, milestoneID)
	if err != nil {
		middleware.Logger(c).Error("Failed to list evidence",
			zap.Int64("project_id", projectID),
			zap.Int64("milestone_id", milestoneID),
			zap.Error(err),
		)
		return query.Failed[[]services.EvidenceFile](errEvidenceUnavailable)
	}
	return query.Loaded(files, h.now())
}
