package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nativeai_backend/internal/middleware"
	"nativeai_backend/internal/services"
	"nativeai_backend/internal/services/dto"
)

type ChatHandler struct {
	*BaseHandler
	chatService  services.ChatService
	quotaService services.QuotaService
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService, quotaService services.QuotaService) *ChatHandler {
	return &ChatHandler{
		BaseHandler:  base,
		chatService:  chatService,
		quotaService: quotaService,
	}
}

func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chat := rg.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.POST("/messages", h.SendMessage)
		chat.POST("/conversations/:conversationId/messages", h.SendMessage)
		chat.GET("/conversations", h.ListConversations)
		chat.GET("/conversations/:conversationId", h.GetConversation)
		chat.DELETE("/conversations/:conversationId", h.DeleteConversation)
	}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	// The nested route form carries the conversation in the path.
	if id := c.Param("conversationId"); id != "" {
		req.ConversationID = id
	}

	response, err := h.chatService.SendMessage(c.Request.Context(), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	// Attach the post-call quota snapshot so clients can render remaining
	// balance without a second round trip. Missing snapshot is not an error.
	if status, err := h.quotaService.GetStatus(c.Request.Context(), userID); err == nil {
		response.Quota = status
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit, offset := ParsePagination(c)

	response, err := h.chatService.ListConversations(userID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	response, err := h.chatService.GetConversation(userID, c.Param("conversationId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.chatService.DeleteConversation(userID, c.Param("conversationId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Conversation deleted",
	})
}
