package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nativeai_backend/internal/middleware"
	"nativeai_backend/internal/services"
)

type QuotaHandler struct {
	*BaseHandler
	quotaService services.QuotaService
}

func NewQuotaHandler(base *BaseHandler, quotaService services.QuotaService) *QuotaHandler {
	return &QuotaHandler{
		BaseHandler:  base,
		quotaService: quotaService,
	}
}

func (h *QuotaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quota := rg.Group("/quota")
	quota.Use(middleware.AuthMiddleware())
	{
		quota.GET("/my", h.GetMyQuota)
	}
}

// GetMyQuota returns the caller's own usage, allowance, cap and remaining
// balance for the current period.
func (h *QuotaHandler) GetMyQuota(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	status, err := h.quotaService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
