package protect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
)

// Capture-adjacent event types reported by the viewing client
const (
	EventCopy        = "copy"
	EventCut         = "cut"
	EventPrint       = "print"
	EventContextMenu = "context-menu"
	EventPrintScreen = "print-screen"
	EventDevTools    = "devtools"
)

// devtoolsDimensionDelta is the outer-vs-inner window gap (px) past which a
// docked developer-tools panel is assumed
const devtoolsDimensionDelta = 160

// ValidEventType reports whether t is a known capture event type
func ValidEventType(t string) bool {
	switch t {
	case EventCopy, EventCut, EventPrint, EventContextMenu, EventPrintScreen, EventDevTools:
		return true
	}
	return false
}

// WindowMetrics are the viewer's reported window dimensions, used for the
// devtools heuristic
type WindowMetrics struct {
	OuterWidth  int `json:"outer_width"`
	InnerWidth  int `json:"inner_width"`
	OuterHeight int `json:"outer_height"`
	InnerHeight int `json:"inner_height"`
}

// LooksLikeDevTools applies the dimension heuristic. Approximate by nature:
// a sidebar or zoom level can trip it, and an undocked panel won't.
func (m WindowMetrics) LooksLikeDevTools() bool {
	return m.OuterWidth-m.InnerWidth > devtoolsDimensionDelta ||
		m.OuterHeight-m.InnerHeight > devtoolsDimensionDelta
}

type alertSink interface {
	Raise(ctx context.Context, subscriberID, tokenString, alertType, severity, description string, forensics models.AlertForensics) (*models.SuspiciousAlert, error)
}

// CaptureMonitor ingests capture-adjacent events from viewing clients and
// turns them into capture-attempt alerts, rate-limited per (session, type) so
// a reader mashing ctrl+c cannot flood the alert table. Deterrence plus an
// audit trail, not prevention.
type CaptureMonitor struct {
	alerts   alertSink
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewCaptureMonitor creates a monitor emitting at most one alert per session
// and event type within each cooldown interval.
func NewCaptureMonitor(alerts alertSink, cooldown time.Duration) *CaptureMonitor {
	return &CaptureMonitor{
		alerts:   alerts,
		cooldown: cooldown,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

// Report handles one capture event. The default action was already prevented
// client-side; this records the attempt and returns the transient warning the
// viewer should display. recorded is false when the event was absorbed by the
// rate limit.
func (m *CaptureMonitor) Report(ctx context.Context, sessionID, tokenString, subscriberID, eventType string, metrics *WindowMetrics) (warning string, recorded bool, err error) {
	if !ValidEventType(eventType) {
		return "", false, models.ErrBadRequest
	}

	if eventType == EventDevTools && metrics != nil && !metrics.LooksLikeDevTools() {
		// Client-side heuristic fired but the reported dimensions don't
		// support it; show the warning, skip the alert
		return warningFor(eventType), false, nil
	}

	if !m.allow(sessionID, eventType) {
		return warningFor(eventType), false, nil
	}

	forensics := models.AlertForensics{
		"session_id": sessionID,
		"event_type": eventType,
		"at":         m.now().Format(time.RFC3339),
	}
	if metrics != nil {
		forensics["window_metrics"] = map[string]int{
			"outer_width":  metrics.OuterWidth,
			"inner_width":  metrics.InnerWidth,
			"outer_height": metrics.OuterHeight,
			"inner_height": metrics.InnerHeight,
		}
	}

	_, err = m.alerts.Raise(ctx, subscriberID, tokenString,
		models.AlertTypeCaptureAttempt, models.SeverityMedium,
		fmt.Sprintf("%s attempt during viewing session", eventType),
		forensics)
	if err != nil {
		return "", false, fmt.Errorf("failed to record capture attempt: %w", err)
	}

	return warningFor(eventType), true, nil
}

// allow checks and updates the per-(session, type) cooldown window
func (m *CaptureMonitor) allow(sessionID, eventType string) bool {
	key := sessionID + "|" + eventType
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastSeen[key]; ok && now.Sub(last) < m.cooldown {
		return false
	}

	if len(m.lastSeen) > 4096 {
		m.prune(now)
	}

	m.lastSeen[key] = now
	return true
}

// prune drops entries old enough to be outside any cooldown window.
// Caller holds the lock.
func (m *CaptureMonitor) prune(now time.Time) {
	for key, last := range m.lastSeen {
		if now.Sub(last) > m.cooldown {
			delete(m.lastSeen, key)
		}
	}
}

func warningFor(eventType string) string {
	switch eventType {
	case EventPrint:
		return "Printing is disabled. This edition is licensed to you personally."
	case EventPrintScreen, EventDevTools:
		return "This page is watermarked with your subscriber identity."
	default:
		return "Copying is disabled. This edition is licensed to you personally."
	}
}
