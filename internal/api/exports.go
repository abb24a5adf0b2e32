package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"idcards/internal/auth"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/export"
	"idcards/internal/jobstore"
	"idcards/internal/locks"
	"idcards/internal/photo"
)

type exportRequest struct {
	EmployeeIDs  []string `json:"employee_ids"`
	TemplateID   string   `json:"template_id"`
	IncludeFront *bool    `json:"include_front"`
	IncludeBack  *bool    `json:"include_back"`
	QualityScale float64  `json:"quality_scale"`
	Async        bool     `json:"async"`
}

func (h *Handler) request(c *gin.Context, body exportRequest, mode export.Mode) export.Request {
	opts := export.DefaultOptions()
	opts.QualityScale = h.defaultScale
	if body.IncludeFront != nil {
		opts.IncludeFront = *body.IncludeFront
	}
	if body.IncludeBack != nil {
		opts.IncludeBack = *body.IncludeBack
	}
	if body.QualityScale > 0 {
		opts.QualityScale = body.QualityScale
	}
	tpl := body.TemplateID
	if tpl == "" {
		tpl = h.defaultTemplate
	}
	return export.Request{
		Mode:        mode,
		EmployeeIDs: body.EmployeeIDs,
		TemplateID:  tpl,
		Options:     opts,
		Operator:    auth.Subject(c),
	}
}

// CreateExport runs a bulk export. With async it is queued for the worker
// and 202 is returned with the job status.
func (h *Handler) CreateExport(c *gin.Context) {
	var body exportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body.EmployeeIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_ids required"})
		return
	}
	req := h.request(c, body, export.ModeBulk)
	if body.Async {
		st, err := h.exports.Submit(c.Request.Context(), req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Location", "/v1/exports/"+st.ID)
		c.JSON(http.StatusAccepted, st)
		return
	}
	h.runExport(c, req)
}

// SingleExport prints one employee's card through the bulk path.
func (h *Handler) SingleExport(c *gin.Context) {
	var body exportRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.EmployeeIDs = []string{c.Param("employee_id")}
	h.runExport(c, h.request(c, body, export.ModeSingle))
}

func (h *Handler) runExport(c *gin.Context, req export.Request) {
	out, err := h.exports.Run(c.Request.Context(), req, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Export-Message", out.Message)
	c.Header("X-Export-Pages", strconv.Itoa(out.Pages))
	c.Header("X-Export-Warnings", strconv.Itoa(len(out.Warnings)))
	if out.Location != "" {
		c.Header("X-Artifact-Location", out.Location)
	}
	writePDF(c, out.Filename, out.PDF)
}

func writePDF(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) ExportStatus(c *gin.Context) {
	st, err := h.exports.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// fail maps domain errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var ee *export.Error
	switch {
	case errors.Is(err, export.ErrNoSides),
		errors.Is(err, employee.ErrInvalid),
		errors.Is(err, photo.ErrUnreadableImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, employee.ErrNotFound),
		errors.Is(err, cardtemplate.ErrUnknownTemplate),
		errors.Is(err, jobstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, locks.ErrJobInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ee) && errors.Is(err, export.ErrQualityGate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ee.Message, "code": ee.Code, "issues": ee.Issues})
	case errors.Is(err, export.ErrStore):
		h.log.Error("api: artifact store failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "export finished but could not be stored"})
	case errors.Is(err, export.ErrAsyncDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &ee):
		h.log.Error("api: export failed", "code", ee.Code, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": ee.Message, "code": ee.Code})
	default:
		h.log.Error("api: request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
