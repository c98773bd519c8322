package domain

import "time"

// Campaign status values.
const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// Campaign is an influencer-marketing campaign as exposed by GET /campaigns.
type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Budget      int64     `json:"budget,omitempty"` // whole dollars
	Niche       string    `json:"niche,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Creator is a social media creator that can be invited to a campaign.
type Creator struct {
	ID             string  `json:"id"`
	Handle         string  `json:"handle"`
	Name           string  `json:"name,omitempty"`
	Platform       string  `json:"platform"`
	Niche          string  `json:"niche,omitempty"`
	Followers      int64   `json:"followers"`
	EngagementRate float64 `json:"engagementRate"`
	Location       string  `json:"location,omitempty"`
	Email          string  `json:"email,omitempty"`
}
