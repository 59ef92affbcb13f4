package report

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/stray-saver/internal/api/render"
	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/repository"
	"github.com/wzyjerry/stray-saver/internal/service"
	"github.com/wzyjerry/stray-saver/internal/session"
	"go.uber.org/zap"
)

// SuccessPath is where POST / redirects after a report is stored.
const SuccessPath = "/submission_success"

// formSlack is the room left for the text fields and multipart framing on
// top of the image size limit.
const formSlack = 1 << 20

// Handler serves the report form, the dashboard and report pages.
type Handler struct {
	reports *service.ReportService
	maxBody int64
	log     *zap.Logger
}

// NewHandler caps submission bodies at maxUploadBytes plus room for the
// form fields. maxUploadBytes <= 0 leaves bodies uncapped.
func NewHandler(reports *service.ReportService, maxUploadBytes int64, log *zap.Logger) *Handler {
	h := &Handler{reports: reports, log: log.With(zap.String("component", "report_handler"))}
	if maxUploadBytes > 0 {
		h.maxBody = maxUploadBytes + formSlack
	}
	return h
}

// Home renders the report form
func (h *Handler) Home(c *gin.Context) {
	render.HTML(c, http.StatusOK, "index.html", gin.H{"Form": model.ReportForm{}})
}

// Create stores a report and redirects to the confirmation page
func (h *Handler) Create(c *gin.Context) {
	if _, ok := h.submit(c); !ok {
		return
	}
	c.Redirect(http.StatusSeeOther, SuccessPath)
}

// Submit stores a report and shows what was recorded on the same response
func (h *Handler) Submit(c *gin.Context) {
	report, ok := h.submit(c)
	if !ok {
		return
	}
	render.HTML(c, http.StatusOK, "submitted.html", gin.H{"Title": "Report submitted", "Report": report})
}

// Success renders the post-submission confirmation
func (h *Handler) Success(c *gin.Context) {
	render.HTML(c, http.StatusOK, "submission_success.html", gin.H{"Title": "Thank you"})
}

// Dashboard lists every report, newest first. With ?mine=1 it lists only
// the signed-in user's reports.
func (h *Handler) Dashboard(c *gin.Context) {
	mine := c.Query("mine") == "1"

	var (
		reports []model.Report
		err     error
	)
	if mine {
		reports, err = h.reports.ListByReporter(c.Request.Context(), session.FromContext(c).UID)
	} else {
		reports, err = h.reports.List(c.Request.Context())
	}
	if err != nil {
		render.Error(c, http.StatusInternalServerError, "Reports could not be loaded. Please try again.")
		return
	}

	title := "Dashboard"
	if mine {
		title = "My reports"
	}
	render.HTML(c, http.StatusOK, "dashboard.html", gin.H{"Title": title, "Reports": reports, "Mine": mine})
}

// Detail renders one report
func (h *Handler) Detail(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			render.Error(c, http.StatusNotFound, "Report not found.")
			return
		}
		h.log.Error("Failed to load report", zap.String("id", c.Param("id")), zap.Error(err))
		render.Error(c, http.StatusInternalServerError, "The report could not be loaded. Please try again.")
		return
	}
	render.HTML(c, http.StatusOK, "report.html", gin.H{"Title": "Report", "Report": report})
}

// submit runs the shared part of POST / and POST /submit. On failure it has
// already written the response.
func (h *Handler) submit(c *gin.Context) (*model.Report, bool) {
	var form model.ReportForm

	// refuse oversized bodies before any of it is spooled to disk
	if h.maxBody > 0 {
		if c.Request.ContentLength > h.maxBody {
			h.formError(c, http.StatusRequestEntityTooLarge, &form, "The image is too large.")
			return nil, false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.formError(c, http.StatusRequestEntityTooLarge, &form, "The image is too large.")
			return nil, false
		}
		h.formError(c, http.StatusBadRequest, &form, "The form could not be read. Please try again.")
		return nil, false
	}

	image, err := formImage(c)
	if err != nil {
		h.formError(c, http.StatusBadRequest, &form, "The uploaded image could not be read.")
		return nil, false
	}

	uid := ""
	if s := session.FromContext(c); s != nil {
		uid = s.UID
	}

	report, err := h.reports.Submit(c.Request.Context(), uid, &form, image)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			h.formError(c, http.StatusBadRequest, &form, "Please fill in: "+strings.Join(verr.Missing, ", ")+".")
		case errors.Is(err, service.ErrFileTooLarge):
			h.formError(c, http.StatusRequestEntityTooLarge, &form, "The image is too large.")
		default:
			render.Error(c, http.StatusInternalServerError, "Your report could not be saved. Please try again.")
		}
		return nil, false
	}
	return report, true
}

func (h *Handler) formError(c *gin.Context, status int, form *model.ReportForm, msg string) {
	render.HTML(c, status, "index.html", gin.H{"Form": form, "Error": msg})
}

// formImage returns the optional "image" upload. A request without one,
// including a urlencoded body, yields nil.
func formImage(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Filename == "" && fh.Size == 0 {
		return nil, nil
	}
	return fh, nil
}
