package ingest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadinbox_backend/internal/ingest/ports"
	msgdomain "leadinbox_backend/internal/messaging/domain"
	"leadinbox_backend/platform/httpkit"
	"leadinbox_backend/platform/validator"
)

const (
	errInvalidRequest    = "invalid request body"
	errValidation        = "validation error"
	errInvalidCustomerID = "invalid customer id"
	errChannelMismatch   = "API key is not valid for this channel"
	errMissingChannel    = "missing channel context"
)

// Handler handles ingest HTTP requests: the API-key intake surface for
// channel adapters plus the operator-facing engine operations.
type Handler struct {
	svc  *Service
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new ingest handler.
func NewHandler(svc *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, val: val}
}

// ---- Shared DTO pieces ----

type ProfileHintsRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=200"`
	Locale *string `json:"locale" validate:"omitempty,max=16"`
	Region *string `json:"region" validate:"omitempty,max=8"`
	Phone  *string `json:"phone" validate:"omitempty,max=32"`
}

type CustomerRef struct {
	ID      uuid.UUID `json:"id"`
	Created bool      `json:"created"`
}

type MessageResponse struct {
	ID               uuid.UUID `json:"id"`
	CustomerID       uuid.UUID `json:"customerId"`
	Channel          string    `json:"channel"`
	ChannelMessageID *string   `json:"channelMessageId"`
	Direction        string    `json:"direction"`
	Status           string    `json:"status"`
	Body             string    `json:"body"`
	Automated        bool      `json:"automated"`
	OccurredAt       time.Time `json:"occurredAt"`
	CreatedAt        time.Time `json:"createdAt"`
	Duplicate        bool      `json:"duplicate"`
}

type TransitionResponse struct {
	Applied    bool       `json:"applied"`
	Stage      string     `json:"stage"`
	Label      string     `json:"label"`
	Score      int        `json:"score"`
	ScoreDelta int        `json:"scoreDelta"`
	ActivityID *uuid.UUID `json:"activityId,omitempty"`
}

// ---- Adapter intake (API-key authenticated) ----

type EventRequest struct {
	Channel          string               `json:"channel" validate:"required,max=32"`
	ExternalUserID   string               `json:"externalUserId" validate:"required,max=256"`
	ChannelMessageID *string              `json:"channelMessageId" validate:"omitempty,max=256"`
	Direction        string               `json:"direction" validate:"required,max=16"`
	Status           string               `json:"status" validate:"omitempty,max=16"`
	Body             string               `json:"body" validate:"required,max=8000"`
	OccurredAt       *time.Time           `json:"occurredAt"`
	ProfileHints     *ProfileHintsRequest `json:"profileHints"`
}

type EventResponse struct {
	Customer        CustomerRef         `json:"customer"`
	Message         MessageResponse     `json:"message"`
	Transition      *TransitionResponse `json:"transition,omitempty"`
	ResponseQueueID *uuid.UUID          `json:"responseQueueId,omitempty"`
}

// HandleEvent processes one normalized event from a channel adapter.
// POST /ingest/v1/events
// Authenticated via X-Ingest-API-Key header (set by middleware); the event's
// channel must match the channel the key is bound to.
func (h *Handler) HandleEvent(c *gin.Context) {
	boundChannel, ok := h.getBoundChannel(c)
	if !ok {
		return
	}

	var req EventRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(req.Channel), boundChannel) {
		httpkit.Error(c, http.StatusForbidden, errChannelMismatch, nil)
		return
	}

	in := EventInput{
		Channel:          req.Channel,
		ExternalUserID:   req.ExternalUserID,
		ChannelMessageID: req.ChannelMessageID,
		Direction:        req.Direction,
		Status:           req.Status,
		Body:             req.Body,
		OccurredAt:       timeOrZero(req.OccurredAt),
	}
	applyHints(&in, req.ProfileHints)

	res, err := h.svc.ProcessEvent(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if res.Message.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, toEventResponse(res))
}

type ReceiptRequest struct {
	ChannelMessageID string     `json:"channelMessageId" validate:"required,max=256"`
	Status           string     `json:"status" validate:"required,max=16"`
	OccurredAt       *time.Time `json:"occurredAt"`
}

type StatusResponse struct {
	MessageID  uuid.UUID `json:"messageId"`
	CustomerID uuid.UUID `json:"customerId"`
	Status     string    `json:"status"`
	Applied    bool      `json:"applied"`
}

// HandleReceipt applies a delivery receipt reported by a channel adapter.
// POST /ingest/v1/receipts
// The receipt is scoped to the channel the API key is bound to.
func (h *Handler) HandleReceipt(c *gin.Context) {
	boundChannel, ok := h.getBoundChannel(c)
	if !ok {
		return
	}

	var req ReceiptRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	outcome, err := h.svc.UpdateMessageStatus(c.Request.Context(), StatusInput{
		Channel:          boundChannel,
		ChannelMessageID: req.ChannelMessageID,
		Status:           req.Status,
		At:               timeOrZero(req.OccurredAt),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toStatusResponse(outcome))
}

// ---- Operator operations (JWT authenticated) ----

type ResolveCustomerRequest struct {
	Channel        string               `json:"channel" validate:"required,max=32"`
	ExternalUserID string               `json:"externalUserId" validate:"required,max=256"`
	ProfileHints   *ProfileHintsRequest `json:"profileHints"`
}

// HandleResolveCustomer maps a channel identity to a customer id.
// POST /api/v1/customers/resolve
func (h *Handler) HandleResolveCustomer(c *gin.Context) {
	var req ResolveCustomerRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	in := ResolveCustomerInput{
		Channel:        req.Channel,
		ExternalUserID: req.ExternalUserID,
	}
	if req.ProfileHints != nil {
		in.Name = req.ProfileHints.Name
		in.Locale = req.ProfileHints.Locale
		in.Region = req.ProfileHints.Region
		in.Phone = req.ProfileHints.Phone
	}

	customer, err := h.svc.ResolveCustomer(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if customer.Created {
		status = http.StatusCreated
	}
	c.JSON(status, CustomerRef{ID: customer.ID, Created: customer.Created})
}

type RecordMessageRequest struct {
	CustomerID       uuid.UUID  `json:"customerId" validate:"required"`
	Channel          string     `json:"channel" validate:"required,max=32"`
	ChannelMessageID *string    `json:"channelMessageId" validate:"omitempty,max=256"`
	Direction        string     `json:"direction" validate:"required,max=16"`
	Status           string     `json:"status" validate:"omitempty,max=16"`
	Body             string     `json:"body" validate:"required,max=8000"`
	OccurredAt       *time.Time `json:"occurredAt"`
}

type RecordMessageResponse struct {
	Message         MessageResponse     `json:"message"`
	Transition      *TransitionResponse `json:"transition,omitempty"`
	ResponseQueueID *uuid.UUID          `json:"responseQueueId,omitempty"`
}

// HandleRecordMessage records a message for an already resolved customer.
// POST /api/v1/messages
// Idempotent per (channel, channelMessageId); MANUAL entries always insert.
func (h *Handler) HandleRecordMessage(c *gin.Context) {
	var req RecordMessageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	res, err := h.svc.RecordMessage(c.Request.Context(), RecordMessageInput{
		CustomerID:       req.CustomerID,
		Channel:          req.Channel,
		ChannelMessageID: req.ChannelMessageID,
		Direction:        req.Direction,
		Status:           req.Status,
		Body:             req.Body,
		OccurredAt:       timeOrZero(req.OccurredAt),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if res.Message.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, RecordMessageResponse{
		Message:         toMessageResponse(res.Message),
		Transition:      toTransitionResponse(res),
		ResponseQueueID: res.OutboxID,
	})
}

type UpdateStatusRequest struct {
	Channel          string     `json:"channel" validate:"required,max=32"`
	ChannelMessageID string     `json:"channelMessageId" validate:"required,max=256"`
	Status           string     `json:"status" validate:"required,max=16"`
	OccurredAt       *time.Time `json:"occurredAt"`
}

// HandleUpdateStatus applies a delivery receipt through the operator API.
// PATCH /api/v1/messages/status
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	outcome, err := h.svc.UpdateMessageStatus(c.Request.Context(), StatusInput{
		Channel:          req.Channel,
		ChannelMessageID: req.ChannelMessageID,
		Status:           req.Status,
		At:               timeOrZero(req.OccurredAt),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toStatusResponse(outcome))
}

type ApplyTransitionRequest struct {
	Stage *string `json:"stage" validate:"omitempty,max=32"`
	Label *string `json:"label" validate:"omitempty,max=32"`
	Score *int    `json:"score" validate:"omitempty,min=0"`
	Note  string  `json:"note" validate:"omitempty,max=500"`
}

// HandleApplyTransition applies a manual stage/label/score edit.
// POST /api/v1/customers/:customerID/transitions
func (h *Handler) HandleApplyTransition(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidCustomerID, nil)
		return
	}

	var req ApplyTransitionRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	outcome, err := h.svc.ApplyTransition(c.Request.Context(), customerID, ports.ManualEdit{
		Stage: req.Stage,
		Label: req.Label,
		Score: req.Score,
		Note:  req.Note,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := TransitionResponse{
		Applied:    outcome.Applied,
		Stage:      outcome.Stage,
		Label:      outcome.Label,
		Score:      outcome.Score,
		ScoreDelta: outcome.ScoreDelta,
	}
	if outcome.Applied {
		activityID := outcome.ActivityID
		resp.ActivityID = &activityID
	}
	httpkit.OK(c, resp)
}

// ---- Admin API Key Management (JWT authenticated) ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Channel string `json:"channel" validate:"required,max=32"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	KeyPrefix string    `json:"keyPrefix"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"` // plaintext, shown only once
}

// HandleCreateAPIKey mints a new channel-bound ingest API key.
// POST /api/v1/admin/ingest/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	channel := strings.ToUpper(strings.TrimSpace(req.Channel))
	if !msgdomain.IsKnownChannel(channel) || channel == msgdomain.ChannelManual {
		httpkit.Error(c, http.StatusBadRequest, "channel cannot carry API keys", nil)
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), req.Name, channel, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists all ingest API keys.
// GET /api/v1/admin/ingest/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		result[i] = toAPIKeyResponse(k)
	}

	httpkit.OK(c, result)
}

// HandleRevokeAPIKey deactivates an ingest API key.
// DELETE /api/v1/admin/ingest/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// ---- helpers ----

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}

func (h *Handler) getBoundChannel(c *gin.Context) (string, bool) {
	channel := c.GetString(ctxKeyChannel)
	if channel == "" {
		httpkit.Error(c, http.StatusUnauthorized, errMissingChannel, nil)
		return "", false
	}
	return channel, true
}

func applyHints(in *EventInput, hints *ProfileHintsRequest) {
	if hints == nil {
		return
	}
	in.Name = hints.Name
	in.Locale = hints.Locale
	in.Region = hints.Region
	in.Phone = hints.Phone
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func toEventResponse(res EventResult) EventResponse {
	return EventResponse{
		Customer:        CustomerRef{ID: res.Customer.ID, Created: res.Customer.Created},
		Message:         toMessageResponse(res.Message),
		Transition:      toTransitionResponse(res.RecordResult),
		ResponseQueueID: res.OutboxID,
	}
}

func toMessageResponse(msg ports.RecordedMessage) MessageResponse {
	return MessageResponse{
		ID:               msg.ID,
		CustomerID:       msg.CustomerID,
		Channel:          msg.Channel,
		ChannelMessageID: msg.ChannelMessageID,
		Direction:        msg.Direction,
		Status:           msg.Status,
		Body:             msg.Body,
		Automated:        msg.Automated,
		OccurredAt:       msg.OccurredAt,
		CreatedAt:        msg.CreatedAt,
		Duplicate:        msg.Duplicate,
	}
}

// toTransitionResponse renders where the lead state landed. Redelivered
// messages skip the transition step entirely, so they carry none.
func toTransitionResponse(res RecordResult) *TransitionResponse {
	if res.Message.Duplicate {
		return nil
	}
	resp := &TransitionResponse{
		Applied:    res.Transition.Applied,
		Stage:      res.Transition.Stage,
		Label:      res.Transition.Label,
		Score:      res.Transition.Score,
		ScoreDelta: res.Transition.ScoreDelta,
	}
	if res.Transition.Applied {
		activityID := res.Transition.ActivityID
		resp.ActivityID = &activityID
	}
	return resp
}

func toStatusResponse(outcome ports.StatusOutcome) StatusResponse {
	return StatusResponse{
		MessageID:  outcome.MessageID,
		CustomerID: outcome.CustomerID,
		Status:     outcome.Status,
		Applied:    outcome.Applied,
	}
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Channel:   key.Channel,
		KeyPrefix: key.KeyPrefix,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	}
}
