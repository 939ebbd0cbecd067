package exports

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestCsvColumnsMatchHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		row     []string
	}{
		{"customers", customerHeaders(), CustomerRow{}.CSV()},
		{"messages", messageHeaders(), MessageRow{}.CSV()},
		{"conversations", conversationHeaders(), ConversationRow{}.CSV()},
		{"activities", activityHeaders(), ActivityRow{}.CSV()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.row) != len(tt.headers) {
				t.Errorf("row has %d fields, headers have %d", len(tt.row), len(tt.headers))
			}
		})
	}
}

func TestCustomerRowCSV(t *testing.T) {
	name := "Noor"
	created := time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)
	row := CustomerRow{
		ID:         uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Name:       &name,
		Stage:      "CONTACTED",
		Label:      "WARM",
		Type:       "LEAD",
		Score:      35,
		CreatedAt:  created,
		UpdatedAt:  created,
		LastSeenAt: created,
	}

	fields := row.CSV()
	want := []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"Noor", "", "", "",
		"CONTACTED", "WARM", "LEAD", "35",
		"2025-06-12T09:30:00Z", "2025-06-12T09:30:00Z", "2025-06-12T09:30:00Z", "",
	}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(fields), len(want))
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestMessageRowCSVOptionalFields(t *testing.T) {
	externalID := "wamid.123"
	modelID := "canned-v1"
	latency := int64(840)
	delivered := time.Date(2025, 6, 12, 9, 31, 0, 0, time.UTC)

	row := MessageRow{
		Channel:           "CHANNEL_A",
		ExternalID:        &externalID,
		Direction:         "OUTBOUND",
		Status:            "DELIVERED",
		Body:              "Thanks for reaching out",
		Automated:         true,
		ModelID:           &modelID,
		ResponseLatencyMs: &latency,
		OccurredAt:        delivered,
		CreatedAt:         delivered,
		DeliveredAt:       &delivered,
	}

	fields := row.CSV()
	if got := fields[3]; got != "wamid.123" {
		t.Errorf("external_id = %q, want %q", got, "wamid.123")
	}
	if got := fields[7]; got != "true" {
		t.Errorf("is_automated = %q, want %q", got, "true")
	}
	if got := fields[9]; got != "840" {
		t.Errorf("response_latency_ms = %q, want %q", got, "840")
	}
	if got := fields[12]; got != "2025-06-12T09:31:00Z" {
		t.Errorf("delivered_at = %q, want %q", got, "2025-06-12T09:31:00Z")
	}
	if got := fields[13]; got != "" {
		t.Errorf("read_at = %q, want empty", got)
	}
}

func rangeOnRequest(t *testing.T, target string) (time.Time, time.Time, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var from, to time.Time
	var parseErr error
	engine := gin.New()
	engine.GET("/export", func(c *gin.Context) {
		from, to, parseErr = parseDateRange(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return from, to, parseErr
}

func TestParseDateRange(t *testing.T) {
	t.Run("defaults to unbounded start", func(t *testing.T) {
		from, to, err := rangeOnRequest(t, "/export")
		if err != nil {
			t.Fatalf("parseDateRange: %v", err)
		}
		if !from.IsZero() {
			t.Errorf("from = %v, want zero", from)
		}
		if time.Since(to) > time.Minute {
			t.Errorf("to = %v, want close to now", to)
		}
	})

	t.Run("explicit range", func(t *testing.T) {
		from, to, err := rangeOnRequest(t, "/export?fromDate=2025-06-01&toDate=2025-06-30")
		if err != nil {
			t.Fatalf("parseDateRange: %v", err)
		}
		if want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
			t.Errorf("from = %v, want %v", from, want)
		}
		if want := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC); !to.Equal(want) {
			t.Errorf("to = %v, want %v", to, want)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		if _, _, err := rangeOnRequest(t, "/export?fromDate=June-1st"); err == nil {
			t.Error("expected error for malformed date")
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		if _, _, err := rangeOnRequest(t, "/export?fromDate=2025-07-01&toDate=2025-06-01"); err == nil {
			t.Error("expected error for inverted range")
		}
	})
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"default", "/export", defaultExportLimit},
		{"explicit", "/export?limit=250", 250},
		{"above max", "/export?limit=9999999", maxExportLimit},
		{"zero", "/export?limit=0", defaultExportLimit},
		{"not a number", "/export?limit=all", defaultExportLimit},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			engine := gin.New()
			engine.GET("/export", func(c *gin.Context) {
				got = parseLimit(c, defaultExportLimit, maxExportLimit)
				c.Status(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if got != tt.want {
				t.Errorf("limit = %d, want %d", got, tt.want)
			}
		})
	}
}
