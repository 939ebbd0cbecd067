package service

import (
	"context"
	"testing"
	"time"

	"leadinbox_backend/internal/leadstate/domain"
	"leadinbox_backend/internal/leadstate/repository"
	"leadinbox_backend/platform/apperr"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestNormalizeSignal(t *testing.T) {
	tests := []struct {
		name    string
		sig     domain.Signal
		wantErr bool
	}{
		{
			name: "valid message signal",
			sig:  domain.Signal{Kind: domain.SignalMessage, Message: &domain.MessageSignal{Channel: "CHANNEL_A", Inbound: true, OccurredAt: time.Now()}},
		},
		{
			name: "valid manual edit",
			sig:  domain.Signal{Kind: domain.SignalManual, Manual: &domain.ManualEdit{Stage: strPtr("qualified")}},
		},
		{
			name:    "message signal without payload",
			sig:     domain.Signal{Kind: domain.SignalMessage},
			wantErr: true,
		},
		{
			name:    "manual signal without payload",
			sig:     domain.Signal{Kind: domain.SignalManual},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			sig:     domain.Signal{Kind: "CRON"},
			wantErr: true,
		},
		{
			name:    "manual edit with unknown stage",
			sig:     domain.Signal{Kind: domain.SignalManual, Manual: &domain.ManualEdit{Stage: strPtr("PARKED")}},
			wantErr: true,
		},
		{
			name:    "manual edit with unknown label",
			sig:     domain.Signal{Kind: domain.SignalManual, Manual: &domain.ManualEdit{Label: strPtr("TEPID")}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeSignal(tc.sig)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if apperr.GetKind(err) != apperr.KindValidation {
					t.Errorf("kind = %v, want KindValidation", apperr.GetKind(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeSignal: %v", err)
			}
			if tc.sig.Kind == domain.SignalManual && tc.sig.Manual.Stage != nil {
				if got.Manual.Stage == nil || *got.Manual.Stage != "QUALIFIED" {
					t.Errorf("stage not case folded: %v", got.Manual.Stage)
				}
			}
		})
	}
}

func TestNormalizeSignalDoesNotMutateCaller(t *testing.T) {
	stage := "qualified"
	edit := domain.ManualEdit{Stage: &stage}
	sig := domain.Signal{Kind: domain.SignalManual, Manual: &edit}

	if _, err := normalizeSignal(sig); err != nil {
		t.Fatalf("normalizeSignal: %v", err)
	}
	if stage != "qualified" {
		t.Errorf("caller's stage mutated to %q", stage)
	}
	if edit.Stage != &stage {
		t.Error("caller's edit struct was rewritten")
	}
}

func TestDescribeSignal(t *testing.T) {
	tests := []struct {
		name string
		sig  domain.Signal
		want string
	}{
		{
			name: "message",
			sig:  domain.Signal{Kind: domain.SignalMessage, Message: &domain.MessageSignal{Channel: "CHANNEL_B"}},
			want: "inbound message on CHANNEL_B",
		},
		{
			name: "manual with note",
			sig:  domain.Signal{Kind: domain.SignalManual, Manual: &domain.ManualEdit{Note: " closed after call "}},
			want: "closed after call",
		},
		{
			name: "manual without note",
			sig:  domain.Signal{Kind: domain.SignalManual, Manual: &domain.ManualEdit{}},
			want: "manual edit",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeSignal(tc.sig); got != tc.want {
				t.Errorf("describeSignal() = %q, want %q", got, tc.want)
			}
		})
	}
}

func makeActivities(n int) []repository.Activity {
	customerID := uuid.New()
	items := make([]repository.Activity, n)
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := range items {
		items[i] = repository.Activity{
			ID:         uuid.New(),
			CustomerID: customerID,
			ScoreDelta: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	return items
}

func pagedFetch(all []repository.Activity, calls *int) fetchFunc {
	return func(ctx context.Context, limit, offset int) ([]repository.Activity, error) {
		*calls++
		if offset >= len(all) {
			return nil, nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		return all[offset:end], nil
	}
}

func drain(t *testing.T, it *HistoryIterator) []repository.Activity {
	t.Helper()
	var out []repository.Activity
	for {
		activity, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, activity)
	}
}

func TestHistoryIteratorPagesThroughEverything(t *testing.T) {
	all := makeActivities(7)
	calls := 0
	it := &HistoryIterator{fetch: pagedFetch(all, &calls), batchSize: 3}

	got := drain(t, it)
	if len(got) != len(all) {
		t.Fatalf("drained %d entries, want %d", len(got), len(all))
	}
	for i := range got {
		if got[i].ID != all[i].ID {
			t.Fatalf("entry %d out of order", i)
		}
	}
	// 3 + 3 + 1: the short page marks exhaustion, no extra fetch.
	if calls != 3 {
		t.Errorf("fetch calls = %d, want 3", calls)
	}
}

func TestHistoryIteratorEmpty(t *testing.T) {
	calls := 0
	it := &HistoryIterator{fetch: pagedFetch(nil, &calls), batchSize: 3}

	if got := drain(t, it); len(got) != 0 {
		t.Errorf("drained %d entries, want 0", len(got))
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestHistoryIteratorIsLazy(t *testing.T) {
	calls := 0
	_ = &HistoryIterator{fetch: pagedFetch(makeActivities(2), &calls), batchSize: 3}
	if calls != 0 {
		t.Errorf("iterator fetched before first Next: %d calls", calls)
	}
}

func TestHistoryIteratorReset(t *testing.T) {
	all := makeActivities(5)
	calls := 0
	it := &HistoryIterator{fetch: pagedFetch(all, &calls), batchSize: 2}

	first := drain(t, it)
	it.Reset()
	second := drain(t, it)

	if len(first) != 5 || len(second) != 5 {
		t.Fatalf("drained %d then %d entries, want 5 and 5", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("restarted iteration diverged at entry %d", i)
		}
	}
}

func TestHistoryIteratorExactMultipleOfBatch(t *testing.T) {
	all := makeActivities(4)
	calls := 0
	it := &HistoryIterator{fetch: pagedFetch(all, &calls), batchSize: 2}

	if got := drain(t, it); len(got) != 4 {
		t.Fatalf("drained %d entries, want 4", len(got))
	}
	// Two full pages plus the empty page that signals the end.
	if calls != 3 {
		t.Errorf("fetch calls = %d, want 3", calls)
	}
}
