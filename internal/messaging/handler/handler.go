package handler

import (
	"net/http"
	"strconv"

	"leadinbox_backend/internal/messaging/repository"
	"leadinbox_backend/internal/messaging/service"
	"leadinbox_backend/internal/messaging/transport"
	"leadinbox_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidCustomerID = "invalid customer id"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:customerID/conversation", h.GetConversation)
	rg.GET("/customers/:customerID/messages", h.ListMessages)
}

func (h *Handler) GetConversation(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	conv, err := h.svc.GetConversation(c.Request.Context(), customerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ConversationResponse{
		ID:              conv.ID.String(),
		CustomerID:      conv.CustomerID.String(),
		IsActive:        conv.IsActive,
		MessageCount:    conv.MessageCount,
		LastMessageText: conv.LastMessageText,
		LastMessageAt:   conv.LastMessageAt,
		CreatedAt:       conv.CreatedAt,
		UpdatedAt:       conv.UpdatedAt,
	})
}

func (h *Handler) ListMessages(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.svc.ListMessages(c.Request.Context(), customerID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListMessagesResponse{Messages: make([]transport.MessageResponse, 0, len(messages))}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(message))
	}
	httpkit.OK(c, resp)
}

func toMessageResponse(message repository.Message) transport.MessageResponse {
	return transport.MessageResponse{
		ID:                message.ID.String(),
		CustomerID:        message.CustomerID.String(),
		Channel:           message.Channel,
		ChannelMessageID:  message.ExternalID,
		Direction:         message.Direction,
		Status:            message.Status,
		Body:              message.Body,
		Automated:         message.Automated,
		ModelID:           message.ModelID,
		ResponseLatencyMs: message.ResponseLatencyMs,
		OccurredAt:        message.OccurredAt,
		CreatedAt:         message.CreatedAt,
		DeliveredAt:       message.DeliveredAt,
		ReadAt:            message.ReadAt,
	}
}
