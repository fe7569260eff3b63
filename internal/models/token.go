package models

import (
	"time"
)

// Revocation reasons recorded on the token row
const (
	RevocationReasonDeviceMismatch = "device mismatch"
	RevocationReasonMultipleIPs    = "multiple IP addresses"
	RevocationReasonManual         = "revoked by operator"
)

// AccessToken is a per-reader credential granting time-boxed, access-counted,
// device-lockable access to exactly one document. The token string itself is
// the identity: opaque, random, delivered as a link to one subscriber.
type AccessToken struct {
	Token             string     `json:"token"`
	DocumentID        string     `json:"document_id"`
	SubscriberID      string     `json:"subscriber_id"`
	SubscriberName    string     `json:"subscriber_name"`
	SubscriberNumber  string     `json:"subscriber_number"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	Revoked           bool       `json:"revoked"`
	RevokedReason     *string    `json:"revoked_reason,omitempty"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	Used              bool       `json:"used"`
	AccessCount       int        `json:"access_count"`
	MaxAccessCount    int        `json:"max_access_count"`
	DeviceFingerprint *string    `json:"-"` // SHA-256 comparison key, never exposed
	IPAddresses       []string   `json:"-"` // observed distinct IPs, never exposed
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsExpired returns true if the token is past its expiry
func (t *AccessToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsBound returns true if a device fingerprint has been fixed to the token
func (t *AccessToken) IsBound() bool {
	return t.DeviceFingerprint != nil && *t.DeviceFingerprint != ""
}

// IsActive returns true if the token can still be redeemed
func (t *AccessToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// HasSeenIP returns true if the IP is already in the observed set
func (t *AccessToken) HasSeenIP(ip string) bool {
	for _, seen := range t.IPAddresses {
		if seen == ip {
			return true
		}
	}
	return false
}
