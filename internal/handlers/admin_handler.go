package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nativeai_backend/internal/middleware"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/services"
	"nativeai_backend/internal/services/dto"
	"nativeai_backend/pkg/apperrors"
)

// AdminHandler exposes the privileged billing operations. Every route is
// behind both authentication and the admin role check.
type AdminHandler struct {
	*BaseHandler
	adminService services.QuotaAdminService
	quotaService services.QuotaService
}

func NewAdminHandler(base *BaseHandler, adminService services.QuotaAdminService, quotaService services.QuotaService) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  base,
		adminService: adminService,
		quotaService: quotaService,
	}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.PUT("/users/:userId/plan", h.SetPlan)
		admin.POST("/users/:userId/allowance", h.GrantAllowance)
		admin.GET("/users/resolve", h.ResolveUser)
		admin.GET("/users/:userId/quota", h.GetUserQuota)
	}
}

func (h *AdminHandler) SetPlan(c *gin.Context) {
	var req dto.SetPlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	userID := c.Param("userId")

	tier, err := h.adminService.SetPlan(c.Request.Context(), userID, req.Plan)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SetPlanResponse{
		UserID: userID,
		Plan:   string(tier),
	})
}

func (h *AdminHandler) GrantAllowance(c *gin.Context) {
	var req dto.GrantAllowanceRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.adminService.GrantAllowance(c.Request.Context(), c.Param("userId"), req.Tokens)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ResolveUser maps an email to a user ID for support tooling.
func (h *AdminHandler) ResolveUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing required query parameter: email"))
		return
	}

	response, err := h.adminService.ResolveUserIDByEmail(c.Request.Context(), email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetUserQuota lets an admin inspect any user's current period balance.
func (h *AdminHandler) GetUserQuota(c *gin.Context) {
	status, err := h.quotaService.GetStatus(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
