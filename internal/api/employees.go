package api

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"idcards/internal/employee"
	"idcards/internal/quality"
)

type saveRequest struct {
	Employees []employee.Record `json:"employees" binding:"required"`
}

// SaveEmployees upserts a batch of records by employee_id.
func (h *Handler) SaveEmployees(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i := range req.Employees {
		req.Employees[i].Photo = nil
	}
	res, err := h.employees.SaveMany(c.Request.Context(), req.Employees)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": res.Saved, "duplicates": res.Duplicates})
}

func (h *Handler) ListEmployees(c *gin.Context) {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	recs, err := h.employees.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": recs})
}

func (h *Handler) GetEmployee(c *gin.Context) {
	rec, err := h.employees.Get(c.Request.Context(), c.Param("employee_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UploadPhoto accepts a multipart "photo" file or a JSON {"data": "<base64
// or data URL>"} body, normalizes it and attaches it to the employee.
func (h *Handler) UploadPhoto(c *gin.Context) {
	id := c.Param("employee_id")
	if _, err := h.employees.Get(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	var data []byte
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo field required"})
			return
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read photo failed"})
			return
		}
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		decoded, err := decodeDataURL(body.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data = decoded
	}

	asset, err := h.photos.Process(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.employees.AttachPhoto(c.Request.Context(), id, asset); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee_id": id,
		"photo":       asset,
		"quality":     quality.AssessCardPhoto(asset.Width, asset.Height),
	})
}

func decodeDataURL(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 photo: %w", err)
	}
	return data, nil
}

// ImportFailure is one archive entry that could not be attached.
type ImportFailure struct {
	Entry      string `json:"entry"`
	EmployeeID string `json:"employee_id,omitempty"`
	Reason     string `json:"reason"`
}

// BulkPhotos imports a ZIP of photos named <employee_id>.<ext>.
func (h *Handler) BulkPhotos(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, _, err := c.Request.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive field required"})
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read archive failed"})
		return
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive is not a zip file"})
		return
	}

	ctx := c.Request.Context()
	imported := []string{}
	failures := []ImportFailure{}
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		fail := func(reason string) {
			failures = append(failures, ImportFailure{Entry: f.Name, EmployeeID: id, Reason: reason})
		}
		if _, err := h.employees.Get(ctx, id); err != nil {
			fail("unknown employee")
			continue
		}
		rc, err := f.Open()
		if err != nil {
			fail(err.Error())
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, h.maxUpload))
		rc.Close()
		if err != nil {
			fail(err.Error())
			continue
		}
		asset, err := h.photos.Process(ctx, data)
		if err != nil {
			fail(err.Error())
			continue
		}
		if err := h.employees.AttachPhoto(ctx, id, asset); err != nil {
			fail(err.Error())
			continue
		}
		imported = append(imported, id)
	}
	h.log.Info("api: bulk photo import", "imported", len(imported), "failed", len(failures))
	c.JSON(http.StatusOK, gin.H{"imported": imported, "failures": failures})
}
