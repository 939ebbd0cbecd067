package transport

import "time"

type MessageResponse struct {
	ID                string     `json:"id"`
	CustomerID        string     `json:"customerId"`
	Channel           string     `json:"channel"`
	ChannelMessageID  *string    `json:"channelMessageId,omitempty"`
	Direction         string     `json:"direction"`
	Status            string     `json:"status"`
	Body              string     `json:"body"`
	Automated         bool       `json:"automated"`
	ModelID           *string    `json:"modelId,omitempty"`
	ResponseLatencyMs *int64     `json:"responseLatencyMs,omitempty"`
	OccurredAt        time.Time  `json:"occurredAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
	ReadAt            *time.Time `json:"readAt,omitempty"`
}

type ConversationResponse struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customerId"`
	IsActive        bool       `json:"isActive"`
	MessageCount    int        `json:"messageCount"`
	LastMessageText *string    `json:"lastMessageText,omitempty"`
	LastMessageAt   *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}
