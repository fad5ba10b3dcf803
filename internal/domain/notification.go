package domain

import "time"

// NotificationType enumerates inbox entry kinds.
type NotificationType string

const (
	NotificationTicketCreated   NotificationType = "TICKET_CREATED"
	NotificationTicketAssigned  NotificationType = "TICKET_ASSIGNED"
	NotificationStatusChanged   NotificationType = "STATUS_CHANGED"
	NotificationCommentAdded    NotificationType = "COMMENT_ADDED"
	NotificationTicketResolved  NotificationType = "TICKET_RESOLVED"
	NotificationTicketReopened  NotificationType = "TICKET_REOPENED"
	NotificationDueDateOverride NotificationType = "DUE_DATE_OVERRIDE"
)

// Notification is a per-recipient inbox row; only the read flag is mutable.
type Notification struct {
	ID          int64
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	LinkURL     *string
	IsRead      bool
	CreatedAt   time.Time
}

// NotificationSetting toggles delivery of a notification type globally.
type NotificationSetting struct {
	Type      NotificationType
	Enabled   bool
	UpdatedAt time.Time
}
