package activity

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"filegate/internal/shared/server/respond"
)

// Handler serves the per-user activity log.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches activity routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/activity/:userName", h.list)
}

func (h *Handler) list(c *gin.Context) {
	userName := strings.TrimSpace(c.Param("userName"))
	if userName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userName is required", nil)
		return
	}

	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	events, err := h.Repo.ListByUser(c.Request.Context(), userName, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load activity", nil)
		return
	}
	respond.OK(c, events)
}
