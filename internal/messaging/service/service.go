package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadinbox_backend/internal/messaging/domain"
	"leadinbox_backend/internal/messaging/repository"
	"leadinbox_backend/platform/apperr"
	"leadinbox_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxBodyLen = 8000
	previewLen = 500
)

const (
	msgMessageNotFound      = "message not found"
	msgConversationNotFound = "conversation not found"
	msgUnknownChannel       = "unknown channel"
	msgUnknownDirection     = "unknown direction"
	msgUnknownStatus        = "unknown delivery status"
	msgMissingMessageID     = "channel message id is required"
	msgStatusMoveBackwards  = "delivery status can only move forward"
)

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

type RecordInput struct {
	CustomerID        uuid.UUID
	Channel           string
	ExternalID        *string
	Direction         string
	Status            string
	Body              string
	Automated         bool
	ModelID           *string
	ResponseLatencyMs *int64
	OccurredAt        time.Time
}

type RecordResult struct {
	Message   repository.Message
	Duplicate bool
}

// RecordIn stores a message inside the caller's transaction and, for a
// genuinely new message, folds it into the customer's conversation rollup.
// Redelivery of an already stored channel message returns the stored row
// with Duplicate=true and leaves every counter untouched.
func (s *Service) RecordIn(ctx context.Context, q repository.DBTX, in RecordInput) (RecordResult, error) {
	in, err := normalizeRecordInput(in)
	if err != nil {
		return RecordResult{}, err
	}

	message, inserted, err := s.repo.Insert(ctx, q, repository.InsertParams{
		CustomerID:        in.CustomerID,
		Channel:           in.Channel,
		ExternalID:        in.ExternalID,
		Direction:         in.Direction,
		Status:            in.Status,
		Body:              in.Body,
		Automated:         in.Automated,
		ModelID:           in.ModelID,
		ResponseLatencyMs: in.ResponseLatencyMs,
		OccurredAt:        in.OccurredAt,
	})
	if err != nil {
		return RecordResult{}, err
	}
	if !inserted {
		return RecordResult{Message: message, Duplicate: true}, nil
	}

	preview := sanitize.Truncate(message.Body, previewLen)
	if err := s.repo.UpsertConversation(ctx, q, in.CustomerID, preview, message.OccurredAt); err != nil {
		return RecordResult{}, err
	}
	if err := s.repo.BumpCustomerLastMessage(ctx, q, in.CustomerID, message.OccurredAt); err != nil {
		return RecordResult{}, err
	}

	return RecordResult{Message: message}, nil
}

func normalizeRecordInput(in RecordInput) (RecordInput, error) {
	in.Channel = strings.ToUpper(strings.TrimSpace(in.Channel))
	if !domain.IsKnownChannel(in.Channel) {
		return in, apperr.Validation(msgUnknownChannel)
	}

	in.Direction = strings.ToUpper(strings.TrimSpace(in.Direction))
	if !domain.IsKnownDirection(in.Direction) {
		return in, apperr.Validation(msgUnknownDirection)
	}

	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = domain.StatusSent
	}
	if !domain.IsKnownStatus(in.Status) {
		return in, apperr.Validation(msgUnknownStatus)
	}

	// MANUAL entries carry no channel-native id and never deduplicate.
	if !domain.HasNativeMessageIDs(in.Channel) {
		in.ExternalID = nil
	}
	if in.ExternalID != nil {
		trimmed := strings.TrimSpace(*in.ExternalID)
		if trimmed == "" {
			in.ExternalID = nil
		} else {
			in.ExternalID = &trimmed
		}
	}

	in.Body = sanitize.Truncate(in.Body, maxBodyLen)

	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}

	return in, nil
}

type StatusUpdateInput struct {
	Channel    string
	ExternalID string
	Status     string
	At         time.Time
}

type StatusResult struct {
	MessageID  uuid.UUID
	CustomerID uuid.UUID
	Status     string
	Applied    bool
}

// UpdateStatusIn applies a delivery receipt to the message identified by
// its (channel, channel message id) key. A receipt repeating the current
// status is absorbed as a no-op; a backwards receipt is rejected.
func (s *Service) UpdateStatusIn(ctx context.Context, q repository.DBTX, in StatusUpdateInput) (StatusResult, error) {
	in.Channel = strings.ToUpper(strings.TrimSpace(in.Channel))
	if !domain.IsKnownChannel(in.Channel) {
		return StatusResult{}, apperr.Validation(msgUnknownChannel)
	}
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	if in.ExternalID == "" {
		return StatusResult{}, apperr.Validation(msgMissingMessageID)
	}
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if !domain.IsKnownStatus(in.Status) {
		return StatusResult{}, apperr.Validation(msgUnknownStatus)
	}
	if in.At.IsZero() {
		in.At = time.Now().UTC()
	}

	row, err := s.repo.GetStatusForUpdate(ctx, q, in.Channel, in.ExternalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return StatusResult{}, apperr.NotFound(msgMessageNotFound)
		}
		return StatusResult{}, err
	}

	if row.Status == in.Status {
		return StatusResult{MessageID: row.ID, CustomerID: row.CustomerID, Status: row.Status}, nil
	}
	if !domain.CanTransitionStatus(row.Status, in.Status) {
		return StatusResult{}, apperr.InvalidTransition(msgStatusMoveBackwards).
			WithDetails(map[string]string{"from": row.Status, "to": in.Status})
	}

	if err := s.repo.SetStatus(ctx, q, row.ID, in.Status, in.At); err != nil {
		return StatusResult{}, err
	}

	return StatusResult{MessageID: row.ID, CustomerID: row.CustomerID, Status: in.Status, Applied: true}, nil
}

func (s *Service) GetConversation(ctx context.Context, customerID uuid.UUID) (repository.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return repository.Conversation{}, apperr.NotFound(msgConversationNotFound)
		}
		return repository.Conversation{}, err
	}
	return conv, nil
}

func (s *Service) ListMessages(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]repository.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, customerID, limit, offset)
}

func (s *Service) CountMessages(ctx context.Context, customerID uuid.UUID) (int, error) {
	return s.repo.CountMessages(ctx, customerID)
}
