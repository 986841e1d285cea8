package reporting

import "time"

// CallStats are aggregate counters over durable call records.

type CallStats struct {
	TotalCalls           int `json:"total_calls"`
	CompletedCalls       int `json:"completed_calls"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
	MeetingsScheduled    int `json:"meetings_scheduled"`
}

// DashboardSummary is the operator dashboard's headline payload.

type DashboardSummary struct {
	TotalCalls        int     `json:"total_calls"`
	ActiveCalls       int     `json:"active_calls"`
	MinutesSpoken     float64 `json:"minutes_spoken"`
	SuccessRate       float64 `json:"success_rate"`
	MeetingsScheduled int     `json:"meetings_scheduled"`

	RecentCalls []RecentCall `json:"recent_calls"`
}

// RecentCall is one row of the dashboard's recent-call table.

type RecentCall struct {
	CallID          string    `json:"call_id"`
	LeadName        string    `json:"lead_name"`
	Phone           string    `json:"phone"`
	State           string    `json:"state"`
	Outcome         string    `json:"outcome,omitempty"`
	MeetingTime     string    `json:"meeting_time,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
}
