package service

import (
	"context"
	"errors"
	"strings"

	"leadinbox_backend/internal/customers/domain"
	"leadinbox_backend/internal/customers/repository"
	messagingdomain "leadinbox_backend/internal/messaging/domain"
	"leadinbox_backend/platform/apperr"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/phone"
	"leadinbox_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgCustomerNotFound = "customer not found"
	msgUnknownChannel   = "unknown channel"
	msgExternalIDEmpty  = "external user id is required"
	msgUnknownType      = "unknown customer type"
)

type Service struct {
	repo          *repository.Repository
	defaultRegion string
}

func New(repo *repository.Repository, cfg config.EngineConfig) *Service {
	return &Service{repo: repo, defaultRegion: cfg.GetDefaultRegion()}
}

type ResolveInput struct {
	Channel    string
	ExternalID string
	Hints      repository.ProfileHints
}

type Resolution struct {
	CustomerID uuid.UUID
	Created    bool
}

// ResolveIn maps a (channel, external user id) pair to the internal customer
// id inside the caller's transaction, creating the customer on first contact.
// Existing customers get their last-seen timestamp touched and any empty
// profile fields filled from the hints.
//
// A lost creation race surfaces as a unique violation on the identity row;
// the caller retries the transaction and the rerun finds the winner.
func (s *Service) ResolveIn(ctx context.Context, q repository.DBTX, in ResolveInput) (Resolution, error) {
	channel, externalID, hints, err := s.normalizeResolveInput(in)
	if err != nil {
		return Resolution{}, err
	}

	customerID, err := s.repo.LookupIdentity(ctx, q, channel, externalID)
	switch {
	case err == nil:
		if err := s.repo.TouchLastSeen(ctx, q, customerID); err != nil {
			return Resolution{}, err
		}
		if err := s.repo.ApplyProfileHints(ctx, q, customerID, hints); err != nil {
			return Resolution{}, err
		}
		return Resolution{CustomerID: customerID}, nil

	case errors.Is(err, repository.ErrNotFound):
		customer, err := s.repo.CreateWithIdentity(ctx, q, repository.CreateCustomerParams{
			Channel:    channel,
			ExternalID: externalID,
			Stage:      domain.InitialStage,
			Label:      domain.InitialLabel,
			Type:       domain.InitialType,
			Score:      domain.InitialScore,
			Hints:      hints,
		})
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{CustomerID: customer.ID, Created: true}, nil

	default:
		return Resolution{}, err
	}
}

func (s *Service) normalizeResolveInput(in ResolveInput) (channel, externalID string, hints repository.ProfileHints, err error) {
	channel = strings.ToUpper(strings.TrimSpace(in.Channel))
	if !messagingdomain.IsKnownChannel(channel) {
		return "", "", repository.ProfileHints{}, apperr.Validation(msgUnknownChannel)
	}

	externalID = strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return "", "", repository.ProfileHints{}, apperr.Validation(msgExternalIDEmpty)
	}

	region := s.defaultRegion
	if in.Hints.Region != nil && strings.TrimSpace(*in.Hints.Region) != "" {
		region = strings.TrimSpace(*in.Hints.Region)
	}

	if messagingdomain.IsPhoneBackedChannel(channel) {
		externalID = phone.NormalizeE164(externalID, region)
	}

	return channel, externalID, normalizeHints(in.Hints, region), nil
}

// normalizeHints cleans the incoming hint fields, drops the empty ones, and
// brings phone hints to E.164.
func normalizeHints(hints repository.ProfileHints, region string) repository.ProfileHints {
	out := repository.ProfileHints{
		Name:   cleanedOrNil(hints.Name),
		Locale: trimmedOrNil(hints.Locale),
		Region: trimmedOrNil(hints.Region),
	}

	if raw := trimmedOrNil(hints.Phone); raw != nil {
		normalized := *raw
		if phone.LooksLikePhone(normalized) {
			normalized = phone.NormalizeE164(normalized, region)
		}
		out.Phone = &normalized
	}

	return out
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// cleanedOrNil strips markup from free-text fields like names; locale and
// region codes only need trimming.
func cleanedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := sanitize.Text(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func (s *Service) GetCustomer(ctx context.Context, customerID uuid.UUID) (repository.Customer, []repository.Identity, error) {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, nil, apperr.NotFound(msgCustomerNotFound)
		}
		return repository.Customer{}, nil, err
	}

	identities, err := s.repo.ListIdentities(ctx, customerID)
	if err != nil {
		return repository.Customer{}, nil, err
	}

	return customer, identities, nil
}

// UpdateProfile applies an operator edit to the customer profile. Stage,
// label, and score are not reachable here; those only move through lead
// transitions so the audit ledger stays complete.
func (s *Service) UpdateProfile(ctx context.Context, customerID uuid.UUID, update repository.ProfileUpdate) (repository.Customer, error) {
	if update.Type != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*update.Type))
		if !domain.IsKnownType(normalized) {
			return repository.Customer{}, apperr.Validation(msgUnknownType)
		}
		update.Type = &normalized
	}

	update.Name = cleanedOrNil(update.Name)
	update.Locale = trimmedOrNil(update.Locale)
	update.Region = trimmedOrNil(update.Region)
	if raw := trimmedOrNil(update.Phone); raw != nil {
		normalized := phone.NormalizeE164(*raw, s.defaultRegion)
		update.Phone = &normalized
	} else {
		update.Phone = nil
	}

	customer, err := s.repo.UpdateProfile(ctx, customerID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, apperr.NotFound(msgCustomerNotFound)
		}
		return repository.Customer{}, err
	}
	return customer, nil
}
