package models

import "time"

// ClassificationEntry is the static per-category rule defining the legal
// notification deadline and the article it derives from. Entries are loaded
// at startup and never change at runtime.
type ClassificationEntry struct {
	Category      string `json:"category"`
	DeadlineHours int    `json:"deadline_hours"`
	ArticleRef    string `json:"article_ref"`
	Description   string `json:"description"`

	// RequiresEUSPANotification marks categories that must also be reported
	// to the EU Space Programme Agency in addition to the national authority.
	RequiresEUSPANotification bool `json:"requires_euspa_notification"`
}

// DeadlineStatus is the computed notification position of one incident at a
// given point in time. HoursRemaining is negative once the deadline passed.
type DeadlineStatus struct {
	NCADeadline          time.Time `json:"nca_deadline"`
	HoursRemaining       float64   `json:"hours_remaining"`
	IsOverdue            bool      `json:"is_overdue"`
	RequiresNotification bool      `json:"requires_notification"`
}
