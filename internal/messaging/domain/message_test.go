package domain

import "testing"

func TestCanTransitionStatus(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"sent to delivered", StatusSent, StatusDelivered, true},
		{"sent to read", StatusSent, StatusRead, true},
		{"delivered to read", StatusDelivered, StatusRead, true},
		{"sent to failed", StatusSent, StatusFailed, true},
		{"delivered to failed", StatusDelivered, StatusFailed, true},

		{"delivered to sent", StatusDelivered, StatusSent, false},
		{"read to delivered", StatusRead, StatusDelivered, false},
		{"read to sent", StatusRead, StatusSent, false},
		{"read to failed", StatusRead, StatusFailed, false},
		{"failed to sent", StatusFailed, StatusSent, false},
		{"failed to delivered", StatusFailed, StatusDelivered, false},
		{"failed to read", StatusFailed, StatusRead, false},

		{"same status is not a transition", StatusDelivered, StatusDelivered, false},
		{"unknown from", "QUEUED", StatusDelivered, false},
		{"unknown to", StatusSent, "QUEUED", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransitionStatus(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransitionStatus(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestChannelTraits(t *testing.T) {
	for _, channel := range []string{ChannelA, ChannelB, ChannelLeadFeed, ChannelManual} {
		if !IsKnownChannel(channel) {
			t.Errorf("IsKnownChannel(%q) = false, want true", channel)
		}
	}
	if IsKnownChannel("EMAIL") {
		t.Error("IsKnownChannel(EMAIL) = true, want false")
	}

	if HasNativeMessageIDs(ChannelManual) {
		t.Error("MANUAL channel must not carry native message ids")
	}
	for _, channel := range []string{ChannelA, ChannelB, ChannelLeadFeed} {
		if !HasNativeMessageIDs(channel) {
			t.Errorf("HasNativeMessageIDs(%q) = false, want true", channel)
		}
	}

	if !IsPhoneBackedChannel(ChannelB) {
		t.Error("CHANNEL_B external ids are phone numbers")
	}
	if IsPhoneBackedChannel(ChannelA) || IsPhoneBackedChannel(ChannelLeadFeed) || IsPhoneBackedChannel(ChannelManual) {
		t.Error("only CHANNEL_B is phone backed")
	}

	if !SupportsAutomatedReplies(ChannelA) || !SupportsAutomatedReplies(ChannelB) {
		t.Error("messaging channels must accept automated replies")
	}
	if SupportsAutomatedReplies(ChannelLeadFeed) || SupportsAutomatedReplies(ChannelManual) {
		t.Error("intake-only channels must not accept automated replies")
	}
}

func TestKnownDirectionsAndStatuses(t *testing.T) {
	if !IsKnownDirection(DirectionInbound) || !IsKnownDirection(DirectionOutbound) {
		t.Error("both directions must be known")
	}
	if IsKnownDirection("SIDEWAYS") {
		t.Error("IsKnownDirection(SIDEWAYS) = true, want false")
	}
	for _, status := range []string{StatusSent, StatusDelivered, StatusRead, StatusFailed} {
		if !IsKnownStatus(status) {
			t.Errorf("IsKnownStatus(%q) = false, want true", status)
		}
	}
	if IsKnownStatus("PENDING") {
		t.Error("IsKnownStatus(PENDING) = true, want false")
	}
}
