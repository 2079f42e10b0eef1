package files

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"filegate/internal/shared/server/middleware"
	"filegate/internal/shared/server/respond"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB

	msgUploaded     = "File uploaded"
	msgDeleted      = "File deleted"
	msgFileNotFound = "File not found"
	msgNothingThere = "File or user not found"
	msgNoFiles      = "No files found for the user."
	msgInternal     = "Internal error"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive maxUploadBytes uses the 10MB default.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches file routes to the router.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/upload", h.upload)
	rg.GET("/download/:userName/:filename", h.download)
	rg.HEAD("/download/:userName/:filename", h.stat)
	rg.DELETE("/delete/:userName/:filename", h.remove)
	rg.GET("/list/:userName", h.list)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.TextError(c, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		respond.TextError(c, http.StatusBadRequest, "file is required", err)
		return
	}
	userName := strings.TrimSpace(c.PostForm("userName"))
	if userName == "" {
		respond.TextError(c, http.StatusBadRequest, "userName is required", nil)
		return
	}
	middleware.SetSubject(c, userName, fileHeader.Filename)

	err = h.Svc.Save(c.Request.Context(), userName, fileHeader.Filename, MultipartSource(fileHeader), fileHeader.Size)
	if err != nil {
		h.fail(c, err, msgInternal)
		return
	}
	respond.Text(c, http.StatusOK, msgUploaded)
}

func (h *Handler) download(c *gin.Context) {
	userName, fileName := c.Param("userName"), c.Param("filename")

	data, err := h.Svc.Load(c.Request.Context(), userName, fileName)
	if err != nil {
		h.fail(c, err, msgFileNotFound)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *Handler) stat(c *gin.Context) {
	info, err := h.Svc.Stat(c.Request.Context(), c.Param("userName"), c.Param("filename"))
	if err != nil {
		status := statusFor(err)
		c.AbortWithStatus(status)
		return
	}
	c.Header("Content-Length", strconv.FormatInt(info.DeclaredLength, 10))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
}

func (h *Handler) remove(c *gin.Context) {
	deleted, err := h.Svc.Remove(c.Request.Context(), c.Param("userName"), c.Param("filename"))
	if err != nil {
		h.fail(c, err, msgNothingThere)
		return
	}
	if !deleted {
		respond.TextError(c, http.StatusNotFound, msgNothingThere, nil)
		return
	}
	respond.Text(c, http.StatusOK, msgDeleted)
}

func (h *Handler) list(c *gin.Context) {
	keys, err := h.Svc.List(c.Request.Context(), c.Param("userName"))
	if err != nil {
		h.fail(c, err, msgNoFiles)
		return
	}
	if len(keys) == 0 {
		respond.JSON(c, http.StatusNotFound, []string{msgNoFiles})
		return
	}
	respond.OK(c, keys)
}

// fail maps a service error to a status. notFoundMsg is the body for ErrNotFound.
func (h *Handler) fail(c *gin.Context, err error, notFoundMsg string) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		respond.TextError(c, status, notFoundMsg, err)
	case http.StatusBadRequest:
		respond.TextError(c, status, "Invalid user or file name", err)
	default:
		respond.TextError(c, status, msgInternal, err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
