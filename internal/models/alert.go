package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Alert types for the suspicious-activity taxonomy
const (
	AlertTypeDeviceMismatch     = "device-mismatch"
	AlertTypeMultipleIPs        = "multiple-ips"
	AlertTypeConcurrentSessions = "multiple-concurrent-sessions"
	AlertTypeReadingVelocity    = "abnormal-reading-velocity"
	AlertTypeGeoAnomaly         = "geo-anomaly"
	AlertTypeCaptureAttempt     = "capture-attempt"
	AlertTypeAccessLimit        = "access-limit"
)

// Alert severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidSeverity reports whether s is a known severity level
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// SuspiciousAlert is an operator-facing record of a detected abuse signal.
// Created by the access validator, session tracker, or capture monitor;
// mutated only by an operator resolving it.
type SuspiciousAlert struct {
	ID               uuid.UUID      `json:"id"`
	SubscriberID     string         `json:"subscriber_id"`
	Token            string         `json:"token"`
	AlertType        string         `json:"alert_type"`
	Severity         string         `json:"severity"`
	Description      string         `json:"description"`
	Forensics        AlertForensics `json:"forensics"`
	Resolved         bool           `json:"resolved"`
	ResolvedBy       *string        `json:"resolved_by,omitempty"`
	ResolutionAction *string        `json:"resolution_action,omitempty"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// AlertForensics holds the structured payload shown to operators only
// (fingerprint diffs, IP lists, timestamps). Never surfaced to readers.
type AlertForensics map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (af *AlertForensics) Scan(value interface{}) error {
	if value == nil {
		*af = make(AlertForensics)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*af = AlertForensics(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (af AlertForensics) Value() (driver.Value, error) {
	if af == nil {
		return nil, nil
	}
	return json.Marshal(af)
}
