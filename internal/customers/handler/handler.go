package handler

import (
	"net/http"

	"leadinbox_backend/internal/customers/repository"
	"leadinbox_backend/internal/customers/service"
	"leadinbox_backend/internal/customers/transport"
	"leadinbox_backend/platform/httpkit"
	"leadinbox_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidCustomerID = "invalid customer id"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:customerID", h.GetCustomer)
	rg.PATCH("/customers/:customerID/profile", h.UpdateProfile)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	customer, identities, err := h.svc.GetCustomer(c.Request.Context(), customerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toCustomerResponse(customer, identities))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	customer, err := h.svc.UpdateProfile(c.Request.Context(), customerID, repository.ProfileUpdate{
		Name:   req.Name,
		Locale: req.Locale,
		Region: req.Region,
		Phone:  req.Phone,
		Type:   req.Type,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toCustomerResponse(customer, nil))
}

func toCustomerResponse(customer repository.Customer, identities []repository.Identity) transport.CustomerResponse {
	resp := transport.CustomerResponse{
		ID:            customer.ID.String(),
		Name:          customer.Name,
		Locale:        customer.Locale,
		Region:        customer.Region,
		Phone:         customer.Phone,
		Stage:         customer.Stage,
		Label:         customer.Label,
		Type:          customer.Type,
		Score:         customer.Score,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
		LastSeenAt:    customer.LastSeenAt,
		LastMessageAt: customer.LastMessageAt,
	}
	for _, identity := range identities {
		resp.Identities = append(resp.Identities, transport.IdentityResponse{
			Channel:    identity.Channel,
			ExternalID: identity.ExternalID,
			CreatedAt:  identity.CreatedAt,
		})
	}
	return resp
}
