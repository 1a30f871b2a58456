package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses
const (
	CampaignStatusPending = "PENDING"
	CampaignStatusSent    = "SENT"
	CampaignStatusClicked = "CLICKED"
	CampaignStatusFailed  = "FAILED"
)

// Valid state transitions: from -> []to. A campaign never moves
// backward; CLICKED is reachable only from SENT.
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusPending: {CampaignStatusSent, CampaignStatusFailed},
	CampaignStatusSent:    {CampaignStatusClicked},
	CampaignStatusClicked: {},
	CampaignStatusFailed:  {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Campaign struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	EmailContent   string     `json:"email_content"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CampaignSummary is the list projection: no content body, keeps
// dashboard responses small.
type CampaignSummary struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
}
