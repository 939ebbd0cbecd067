package service

import (
	"context"
	"testing"

	"leadinbox_backend/internal/customers/repository"
	"leadinbox_backend/platform/apperr"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestResolveInRejectsBadInput(t *testing.T) {
	svc := &Service{defaultRegion: "US"}

	tests := []struct {
		name  string
		input ResolveInput
	}{
		{"unknown channel", ResolveInput{Channel: "CARRIER_PIGEON", ExternalID: "u-1"}},
		{"empty channel", ResolveInput{Channel: "", ExternalID: "u-1"}},
		{"empty external id", ResolveInput{Channel: "CHANNEL_A", ExternalID: "   "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ResolveIn(context.Background(), nil, tc.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("kind = %v, want KindValidation", apperr.GetKind(err))
			}
		})
	}
}

func TestNormalizeResolveInputLowercaseChannel(t *testing.T) {
	svc := &Service{defaultRegion: "US"}

	channel, externalID, _, err := svc.normalizeResolveInput(ResolveInput{
		Channel:    " channel_a ",
		ExternalID: " user-42 ",
	})
	if err != nil {
		t.Fatalf("normalizeResolveInput: %v", err)
	}
	if channel != "CHANNEL_A" {
		t.Errorf("channel = %q, want CHANNEL_A", channel)
	}
	if externalID != "user-42" {
		t.Errorf("externalID = %q, want user-42", externalID)
	}
}

func TestNormalizeResolveInputPhoneBackedChannel(t *testing.T) {
	svc := &Service{defaultRegion: "US"}

	channel, externalID, _, err := svc.normalizeResolveInput(ResolveInput{
		Channel:    "CHANNEL_B",
		ExternalID: "(212) 555-0147",
	})
	if err != nil {
		t.Fatalf("normalizeResolveInput: %v", err)
	}
	if channel != "CHANNEL_B" {
		t.Errorf("channel = %q, want CHANNEL_B", channel)
	}
	if externalID != "+12125550147" {
		t.Errorf("externalID = %q, want +12125550147", externalID)
	}
}

func TestNormalizeResolveInputUsesRegionHint(t *testing.T) {
	svc := &Service{defaultRegion: "US"}

	_, externalID, _, err := svc.normalizeResolveInput(ResolveInput{
		Channel:    "CHANNEL_B",
		ExternalID: "06 1234 5678",
		Hints:      repository.ProfileHints{Region: strPtr("NL")},
	})
	if err != nil {
		t.Fatalf("normalizeResolveInput: %v", err)
	}
	if externalID != "+31612345678" {
		t.Errorf("externalID = %q, want +31612345678", externalID)
	}
}

func TestNormalizeHints(t *testing.T) {
	got := normalizeHints(repository.ProfileHints{
		Name:   strPtr("  Ada Lovelace "),
		Locale: strPtr(""),
		Region: strPtr(" US"),
		Phone:  strPtr("212-555-0147"),
	}, "US")

	if got.Name == nil || *got.Name != "Ada Lovelace" {
		t.Errorf("Name = %v, want Ada Lovelace", got.Name)
	}
	if got.Locale != nil {
		t.Errorf("Locale = %q, want nil", *got.Locale)
	}
	if got.Region == nil || *got.Region != "US" {
		t.Errorf("Region = %v, want US", got.Region)
	}
	if got.Phone == nil || *got.Phone != "+12125550147" {
		t.Errorf("Phone = %v, want +12125550147", got.Phone)
	}
}

func TestNormalizeHintsKeepsNonPhoneValue(t *testing.T) {
	got := normalizeHints(repository.ProfileHints{Phone: strPtr("ask reception")}, "US")
	if got.Phone == nil || *got.Phone != "ask reception" {
		t.Errorf("Phone = %v, want passthrough of non-phone value", got.Phone)
	}
}

func TestUpdateProfileRejectsUnknownType(t *testing.T) {
	svc := &Service{defaultRegion: "US"}

	_, err := svc.UpdateProfile(context.Background(), uuid.New(), repository.ProfileUpdate{
		Type: strPtr("COMPANY"),
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
}
