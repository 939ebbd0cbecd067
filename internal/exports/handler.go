package exports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/httpkit"
	"leadinbox_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const (
	dateLayout         = "2006-01-02"
	defaultExportLimit = 10000
	maxExportLimit     = 100000
)

// Handler serves snapshot CSV downloads and mints download tokens.
type Handler struct {
	repo *Repository
	cfg  config.ExportConfig
	log  *logger.Logger
}

// NewHandler creates the export handler.
func NewHandler(repo *Repository, cfg config.ExportConfig, log *logger.Logger) *Handler {
	return &Handler{repo: repo, cfg: cfg, log: log}
}

// ---- Token minting (service-token authenticated) ----

type MintTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleMintToken issues a short-lived token for the CSV download endpoints.
// The caller name from the service token becomes the download token subject.
func (h *Handler) HandleMintToken(c *gin.Context) {
	caller := c.GetString(httpkit.ContextCallerKey)

	token, expiresAt, err := MintToken(h.cfg, caller, time.Now().UTC())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to mint export token", nil)
		return
	}

	c.JSON(http.StatusCreated, MintTokenResponse{Token: token, ExpiresAt: expiresAt})
}

// ---- Snapshot CSV downloads (export-token authenticated) ----

// ExportCustomersCSV streams the customer table as CSV. All rows come out of
// one repeatable-read transaction.
func (h *Handler) ExportCustomersCSV(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	limit := parseLimit(c, defaultExportLimit, maxExportLimit)

	writer, ok := startCsvResponse(c, "customers.csv", customerHeaders())
	if !ok {
		return
	}

	err = h.repo.Snapshot(c.Request.Context(), func(tx pgx.Tx) error {
		return h.repo.StreamCustomers(c.Request.Context(), tx, from, to, limit, func(row CustomerRow) error {
			return writer.Write(row.CSV())
		})
	})
	h.finishCsv(c, writer, "customers", err)
}

// ExportMessagesCSV streams the message table as CSV.
func (h *Handler) ExportMessagesCSV(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	limit := parseLimit(c, defaultExportLimit, maxExportLimit)

	writer, ok := startCsvResponse(c, "messages.csv", messageHeaders())
	if !ok {
		return
	}

	err = h.repo.Snapshot(c.Request.Context(), func(tx pgx.Tx) error {
		return h.repo.StreamMessages(c.Request.Context(), tx, from, to, limit, func(row MessageRow) error {
			return writer.Write(row.CSV())
		})
	})
	h.finishCsv(c, writer, "messages", err)
}

// ExportConversationsCSV streams the conversation rollups as CSV.
func (h *Handler) ExportConversationsCSV(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	limit := parseLimit(c, defaultExportLimit, maxExportLimit)

	writer, ok := startCsvResponse(c, "conversations.csv", conversationHeaders())
	if !ok {
		return
	}

	err = h.repo.Snapshot(c.Request.Context(), func(tx pgx.Tx) error {
		return h.repo.StreamConversations(c.Request.Context(), tx, from, to, limit, func(row ConversationRow) error {
			return writer.Write(row.CSV())
		})
	})
	h.finishCsv(c, writer, "conversations", err)
}

// ExportActivitiesCSV streams the audit ledger as CSV.
func (h *Handler) ExportActivitiesCSV(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	limit := parseLimit(c, defaultExportLimit, maxExportLimit)

	writer, ok := startCsvResponse(c, "lead-activities.csv", activityHeaders())
	if !ok {
		return
	}

	err = h.repo.Snapshot(c.Request.Context(), func(tx pgx.Tx) error {
		return h.repo.StreamActivities(c.Request.Context(), tx, from, to, limit, func(row ActivityRow) error {
			return writer.Write(row.CSV())
		})
	})
	h.finishCsv(c, writer, "activities", err)
}

// finishCsv flushes the writer. Errors past the first row can only truncate
// the download; the status line is already on the wire.
func (h *Handler) finishCsv(c *gin.Context, writer *csv.Writer, dataset string, err error) {
	if err != nil {
		h.log.Error("export aborted mid-stream", "dataset", dataset, "error", err)
		return
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Error("export flush failed", "dataset", dataset, "error", err)
		return
	}
	h.log.Info("export download served", "dataset", dataset, "caller", c.GetString(ctxKeyExportCaller))
}

// ---- CSV rendering ----

func customerHeaders() []string {
	return []string{
		"id", "name", "locale", "region", "phone", "stage", "label", "customer_type",
		"score", "created_at", "updated_at", "last_seen_at", "last_message_at",
	}
}

func (r CustomerRow) CSV() []string {
	return []string{
		r.ID.String(),
		stringOrEmpty(r.Name),
		stringOrEmpty(r.Locale),
		stringOrEmpty(r.Region),
		stringOrEmpty(r.Phone),
		r.Stage,
		r.Label,
		r.Type,
		strconv.Itoa(r.Score),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
		formatTime(r.LastSeenAt),
		timeOrEmpty(r.LastMessageAt),
	}
}

func messageHeaders() []string {
	return []string{
		"id", "customer_id", "channel", "external_id", "direction", "status", "body",
		"is_automated", "model_id", "response_latency_ms", "occurred_at", "created_at",
		"delivered_at", "read_at",
	}
}

func (r MessageRow) CSV() []string {
	return []string{
		r.ID.String(),
		r.CustomerID.String(),
		r.Channel,
		stringOrEmpty(r.ExternalID),
		r.Direction,
		r.Status,
		r.Body,
		strconv.FormatBool(r.Automated),
		stringOrEmpty(r.ModelID),
		int64OrEmpty(r.ResponseLatencyMs),
		formatTime(r.OccurredAt),
		formatTime(r.CreatedAt),
		timeOrEmpty(r.DeliveredAt),
		timeOrEmpty(r.ReadAt),
	}
}

func conversationHeaders() []string {
	return []string{
		"id", "customer_id", "is_active", "message_count", "last_message_text",
		"last_message_at", "created_at", "updated_at",
	}
}

func (r ConversationRow) CSV() []string {
	return []string{
		r.ID.String(),
		r.CustomerID.String(),
		strconv.FormatBool(r.IsActive),
		strconv.Itoa(r.MessageCount),
		stringOrEmpty(r.LastMessageText),
		timeOrEmpty(r.LastMessageAt),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}
}

func activityHeaders() []string {
	return []string{
		"id", "customer_id", "activity_type", "description", "stage_before", "stage_after",
		"label_before", "label_after", "score_delta", "created_at",
	}
}

func (r ActivityRow) CSV() []string {
	return []string{
		r.ID.String(),
		r.CustomerID.String(),
		r.ActivityType,
		r.Description,
		r.StageBefore,
		r.StageAfter,
		r.LabelBefore,
		r.LabelAfter,
		strconv.Itoa(r.ScoreDelta),
		formatTime(r.CreatedAt),
	}
}

// ---- Helpers ----

func startCsvResponse(c *gin.Context, filename string, headers []string) (*csv.Writer, bool) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(headers); err != nil {
		return nil, false
	}
	return writer, true
}

// parseDateRange reads the optional fromDate / toDate query parameters.
// An absent fromDate means the beginning of the dataset; an absent toDate
// means now. toDate is inclusive of the whole day.
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	fromStr := strings.TrimSpace(c.Query("fromDate"))
	toStr := strings.TrimSpace(c.Query("toDate"))

	from := time.Time{}
	to := time.Now().UTC()

	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("toDate before fromDate")
	}
	return from, to, nil
}

func parseLimit(c *gin.Context, fallback int, max int) int {
	limit := fallback
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit > max {
		return max
	}
	if limit < 1 {
		return fallback
	}
	return limit
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func timeOrEmpty(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func int64OrEmpty(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}
