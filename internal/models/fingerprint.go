package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeviceFingerprint is the composite descriptor of the requesting client
// environment. It is a value, not an entity: two fingerprints either match
// exactly or they don't. Any component drift produces a mismatch.
type DeviceFingerprint struct {
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Locale           string `json:"locale"`
	CanvasSignature  string `json:"canvas_signature,omitempty"`
}

// Hash canonicalizes the components and returns the SHA-256 comparison key
// stored on the token. Canonicalization only strips whitespace and case-folds
// the timezone/locale components; the user agent and canvas signature are
// compared byte-for-byte.
func (f DeviceFingerprint) Hash() string {
	parts := []string{
		strings.TrimSpace(f.UserAgent),
		strings.TrimSpace(f.ScreenResolution),
		strings.ToLower(strings.TrimSpace(f.Timezone)),
		strings.ToLower(strings.TrimSpace(f.Locale)),
		strings.TrimSpace(f.CanvasSignature),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// IsZero reports whether no component is set
func (f DeviceFingerprint) IsZero() bool {
	return f.UserAgent == "" && f.ScreenResolution == "" && f.Timezone == "" &&
		f.Locale == "" && f.CanvasSignature == ""
}
