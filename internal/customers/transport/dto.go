package transport

import "time"

type IdentityResponse struct {
	Channel    string    `json:"channel"`
	ExternalID string    `json:"externalId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CustomerResponse struct {
	ID            string             `json:"id"`
	Name          *string            `json:"name,omitempty"`
	Locale        *string            `json:"locale,omitempty"`
	Region        *string            `json:"region,omitempty"`
	Phone         *string            `json:"phone,omitempty"`
	Stage         string             `json:"stage"`
	Label         string             `json:"label"`
	Type          string             `json:"type"`
	Score         int                `json:"score"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	LastSeenAt    time.Time          `json:"lastSeenAt"`
	LastMessageAt *time.Time         `json:"lastMessageAt,omitempty"`
	Identities    []IdentityResponse `json:"identities,omitempty"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=200"`
	Locale *string `json:"locale" validate:"omitempty,max=20"`
	Region *string `json:"region" validate:"omitempty,max=10"`
	Phone  *string `json:"phone" validate:"omitempty,max=50"`
	Type   *string `json:"type" validate:"omitempty,max=20"`
}
