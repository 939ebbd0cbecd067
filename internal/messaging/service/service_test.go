package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"leadinbox_backend/internal/messaging/domain"
	"leadinbox_backend/platform/apperr"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestNormalizeRecordInput(t *testing.T) {
	occurred := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      RecordInput
		wantErr apperr.Kind
		check   func(t *testing.T, got RecordInput)
	}{
		{
			name: "channel and direction are case folded",
			in:   RecordInput{Channel: " channel_a ", Direction: "inbound", Status: "sent", OccurredAt: occurred},
			check: func(t *testing.T, got RecordInput) {
				if got.Channel != domain.ChannelA {
					t.Errorf("Channel = %q", got.Channel)
				}
				if got.Direction != domain.DirectionInbound {
					t.Errorf("Direction = %q", got.Direction)
				}
				if got.Status != domain.StatusSent {
					t.Errorf("Status = %q", got.Status)
				}
			},
		},
		{
			name: "empty status defaults to sent",
			in:   RecordInput{Channel: "CHANNEL_A", Direction: "INBOUND", OccurredAt: occurred},
			check: func(t *testing.T, got RecordInput) {
				if got.Status != domain.StatusSent {
					t.Errorf("Status = %q, want SENT", got.Status)
				}
			},
		},
		{
			name: "manual channel drops native id",
			in:   RecordInput{Channel: "MANUAL", Direction: "INBOUND", Status: "SENT", ExternalID: strPtr("m-1"), OccurredAt: occurred},
			check: func(t *testing.T, got RecordInput) {
				if got.ExternalID != nil {
					t.Errorf("ExternalID = %q, want nil", *got.ExternalID)
				}
			},
		},
		{
			name: "blank native id becomes nil",
			in:   RecordInput{Channel: "CHANNEL_A", Direction: "INBOUND", Status: "SENT", ExternalID: strPtr("   "), OccurredAt: occurred},
			check: func(t *testing.T, got RecordInput) {
				if got.ExternalID != nil {
					t.Errorf("ExternalID = %q, want nil", *got.ExternalID)
				}
			},
		},
		{
			name: "zero occurred_at gets a timestamp",
			in:   RecordInput{Channel: "CHANNEL_A", Direction: "INBOUND", Status: "SENT"},
			check: func(t *testing.T, got RecordInput) {
				if got.OccurredAt.IsZero() {
					t.Error("OccurredAt still zero")
				}
			},
		},
		{
			name: "oversized body is clamped",
			in:   RecordInput{Channel: "CHANNEL_A", Direction: "INBOUND", Status: "SENT", Body: strings.Repeat("x", maxBodyLen+100), OccurredAt: occurred},
			check: func(t *testing.T, got RecordInput) {
				if len(got.Body) > maxBodyLen {
					t.Errorf("len(Body) = %d, want <= %d", len(got.Body), maxBodyLen)
				}
			},
		},
		{
			name:    "unknown channel",
			in:      RecordInput{Channel: "SMOKE_SIGNAL", Direction: "INBOUND", Status: "SENT"},
			wantErr: apperr.KindValidation,
		},
		{
			name:    "unknown direction",
			in:      RecordInput{Channel: "CHANNEL_A", Direction: "DIAGONAL", Status: "SENT"},
			wantErr: apperr.KindValidation,
		},
		{
			name:    "unknown status",
			in:      RecordInput{Channel: "CHANNEL_A", Direction: "INBOUND", Status: "QUEUED"},
			wantErr: apperr.KindValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeRecordInput(tc.in)
			if tc.wantErr != apperr.KindUnknown {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if apperr.GetKind(err) != tc.wantErr {
					t.Errorf("kind = %v, want %v", apperr.GetKind(err), tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeRecordInput: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestUpdateStatusInRejectsBadInput(t *testing.T) {
	svc := New(nil)

	tests := []struct {
		name string
		in   StatusUpdateInput
	}{
		{"unknown channel", StatusUpdateInput{Channel: "FAX", ExternalID: "m-1", Status: "DELIVERED"}},
		{"missing message id", StatusUpdateInput{Channel: "CHANNEL_A", ExternalID: "  ", Status: "DELIVERED"}},
		{"unknown status", StatusUpdateInput{Channel: "CHANNEL_A", ExternalID: "m-1", Status: "VANISHED"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateStatusIn(context.Background(), nil, tc.in)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("kind = %v, want KindValidation", apperr.GetKind(err))
			}
		})
	}
}

func TestRecordInRejectsBadInputBeforeTouchingStorage(t *testing.T) {
	svc := New(nil)

	_, err := svc.RecordIn(context.Background(), nil, RecordInput{
		CustomerID: uuid.New(),
		Channel:    "CHANNEL_A",
		Direction:  "INBOUND",
		Status:     "QUEUED",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
}
