// Package domain provides core business rules for the messaging bounded
// context: the channel vocabulary, message direction, and the forward-only
// delivery status lifecycle.
package domain

const (
	ChannelA        = "CHANNEL_A"
	ChannelB        = "CHANNEL_B"
	ChannelLeadFeed = "LEAD_FEED"
	ChannelManual   = "MANUAL"
)

const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

const (
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
	StatusFailed    = "FAILED"
)

var knownChannels = map[string]struct{}{
	ChannelA:        {},
	ChannelB:        {},
	ChannelLeadFeed: {},
	ChannelManual:   {},
}

var knownDirections = map[string]struct{}{
	DirectionInbound:  {},
	DirectionOutbound: {},
}

var knownStatuses = map[string]struct{}{
	StatusSent:      {},
	StatusDelivered: {},
	StatusRead:      {},
	StatusFailed:    {},
}

// statusRank orders the delivery lifecycle. FAILED sits outside the rank
// order and is handled explicitly in CanTransitionStatus.
var statusRank = map[string]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

func IsKnownChannel(channel string) bool {
	_, ok := knownChannels[channel]
	return ok
}

func IsKnownDirection(direction string) bool {
	_, ok := knownDirections[direction]
	return ok
}

func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// HasNativeMessageIDs reports whether a channel assigns its own message
// identifiers. MANUAL entries are operator-typed and carry none, so they
// are exempt from deduplication.
func HasNativeMessageIDs(channel string) bool {
	return channel != ChannelManual
}

// IsPhoneBackedChannel reports whether the channel's external user ids are
// phone numbers and should be normalized before identity lookups.
func IsPhoneBackedChannel(channel string) bool {
	return channel == ChannelB
}

// SupportsAutomatedReplies reports whether an outbound reply can be delivered
// on the channel. MANUAL entries and the lead feed are intake-only.
func SupportsAutomatedReplies(channel string) bool {
	return channel == ChannelA || channel == ChannelB
}

// CanTransitionStatus reports whether a delivery receipt may move a message
// from one status to another. The lifecycle only moves forward:
// SENT -> DELIVERED -> READ, with FAILED reachable from SENT or DELIVERED.
// Nothing leaves READ or FAILED.
func CanTransitionStatus(from, to string) bool {
	if from == to {
		return false
	}
	if to == StatusFailed {
		return from == StatusSent || from == StatusDelivered
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
