package domain

import "time"

// AuditEntry records an administrative action. Append-only.
type AuditEntry struct {
	ID         string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IP         string
	CreatedAt  time.Time
}

// Setting is a mutable key-value admin configuration row (webhook URL,
// webhook enabled flag, notification toggles).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
	UpdatedBy *string
}

// Well-known setting keys.
const (
	SettingWebhookURL     = "webhook.url"
	SettingWebhookEnabled = "webhook.enabled"
)

// AccessOverride is an explicit per-user, per-resource permission row that
// takes precedence over role-derived defaults.
type AccessOverride struct {
	ID           string
	UserID       string
	ResourceType string
	ResourceID   string
	Effect       OverrideEffect
	CreatedAt    time.Time
}

// OverrideEffect enumerates override outcomes.
type OverrideEffect string

const (
	OverrideAllow OverrideEffect = "ALLOW"
	OverrideDeny  OverrideEffect = "DENY"
)
