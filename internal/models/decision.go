package models

// DenyReason is the internal taxonomy returned by the access validator.
// Readers only ever see the mapped message from ReaderMessage.
type DenyReason string

const (
	DenyNotFound           DenyReason = "not_found"
	DenyExpired            DenyReason = "expired"
	DenyRevoked            DenyReason = "revoked"
	DenyDeviceMismatch     DenyReason = "device_mismatch"
	DenyMultipleIPs        DenyReason = "multiple_ips"
	DenyAccessLimitReached DenyReason = "access_limit_reached"
)

// ReaderMessage maps a denial reason to the short, non-technical message shown
// to the reader. Unknown tokens read identically to expired ones so the
// endpoint cannot be used as a token-enumeration oracle, and the sharing
// denials never reveal fingerprint or IP detail.
func (r DenyReason) ReaderMessage() string {
	switch r {
	case DenyNotFound, DenyExpired:
		return "This link has expired."
	case DenyRevoked:
		return "This link is no longer valid."
	case DenyDeviceMismatch:
		return "This link can only be opened on the device it was first used on."
	case DenyMultipleIPs:
		return "This link has been disabled because it was opened from multiple locations."
	case DenyAccessLimitReached:
		return "This link has reached its access limit."
	default:
		return "Access denied."
	}
}

// Grant is the payload handed to the viewer on a successful validation:
// an authorization plus references, never raw document bytes.
type Grant struct {
	DocumentRef  string               `json:"document_ref"`
	Presentation DocumentPresentation `json:"presentation"`
	Subscriber   SubscriberIdentity   `json:"subscriber"`
	SessionID    string               `json:"session_id"`
	SessionSeed  int64                `json:"-"` // drives the watermark plan; not serialized directly
	AccessCount  int                  `json:"access_count"`
}

// SubscriberIdentity is the snapshot composited into watermarks
type SubscriberIdentity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

// AuthDecision is either a grant or a denial; exactly one side is set.
type AuthDecision struct {
	Granted bool       `json:"granted"`
	Grant   *Grant     `json:"grant,omitempty"`
	Reason  DenyReason `json:"-"`
}

// Denied constructs a denial decision
func Denied(reason DenyReason) AuthDecision {
	return AuthDecision{Granted: false, Reason: reason}
}
