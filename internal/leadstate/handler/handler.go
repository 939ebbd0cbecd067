package handler

import (
	"net/http"
	"strconv"

	"leadinbox_backend/internal/leadstate/repository"
	"leadinbox_backend/internal/leadstate/service"
	"leadinbox_backend/internal/leadstate/transport"
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
	rg.GET("/customers/:customerID/activities", h.ListActivities)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:customerID/consistency", h.CheckConsistency)
}

// ListActivities serves the audit history oldest first, in pages.
func (h *Handler) ListActivities(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	activities, err := h.svc.Activities(c.Request.Context(), customerID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListActivitiesResponse{Activities: make([]transport.ActivityResponse, 0, len(activities))}
	for _, activity := range activities {
		resp.Activities = append(resp.Activities, toActivityResponse(activity))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CheckConsistency(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCustomerID, nil)
		return
	}

	report, err := h.svc.CheckConsistency(c.Request.Context(), customerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ConsistencyResponse{
		CustomerID:    report.CustomerID.String(),
		Consistent:    report.Consistent,
		Stored:        transport.LeadStateResponse{Stage: report.Stored.Stage, Label: report.Stored.Label, Score: report.Stored.Score},
		Folded:        transport.LeadStateResponse{Stage: report.Folded.Stage, Label: report.Folded.Label, Score: report.Folded.Score},
		ActivityCount: report.ActivityCount,
	})
}

func toActivityResponse(activity repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:           activity.ID.String(),
		CustomerID:   activity.CustomerID.String(),
		ActivityType: activity.ActivityType,
		Description:  activity.Description,
		StageBefore:  activity.StageBefore,
		StageAfter:   activity.StageAfter,
		LabelBefore:  activity.LabelBefore,
		LabelAfter:   activity.LabelAfter,
		ScoreDelta:   activity.ScoreDelta,
		CreatedAt:    activity.CreatedAt,
	}
}
