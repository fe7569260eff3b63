package protect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu     sync.Mutex
	raised []*models.SuspiciousAlert
}

func (r *recordingSink) Raise(ctx context.Context, subscriberID, tokenString, alertType, severity, description string, forensics models.AlertForensics) (*models.SuspiciousAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert := &models.SuspiciousAlert{
		SubscriberID: subscriberID,
		Token:        tokenString,
		AlertType:    alertType,
		Severity:     severity,
		Description:  description,
		Forensics:    forensics,
	}
	r.raised = append(r.raised, alert)
	return alert, nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.raised)
}

func TestCaptureMonitor_FirstEventAlerts(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	warning, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventCopy, nil)

	assert.NoError(t, err)
	assert.True(t, recorded)
	assert.NotEmpty(t, warning)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, models.AlertTypeCaptureAttempt, sink.raised[0].AlertType)
	assert.Equal(t, models.SeverityMedium, sink.raised[0].Severity)
	assert.Equal(t, EventCopy, sink.raised[0].Forensics["event_type"])
}

func TestCaptureMonitor_RepeatedEventsRateLimited(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	elapsed := time.Duration(0)
	monitor.now = func() time.Time { return base.Add(elapsed) }

	// A reader mashing ctrl+c: ten events inside one second
	for i := 0; i < 10; i++ {
		elapsed = time.Duration(i) * 100 * time.Millisecond
		warning, _, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventCopy, nil)
		assert.NoError(t, err)
		assert.NotEmpty(t, warning, "the warning shows every time even when the alert is absorbed")
	}

	assert.Equal(t, 1, sink.count())
}

func TestCaptureMonitor_CooldownExpiryAllowsNextAlert(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	now := base
	monitor.now = func() time.Time { return now }

	_, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventPrint, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)

	now = base.Add(6 * time.Second)

	_, recorded, err = monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventPrint, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, 2, sink.count())
}

func TestCaptureMonitor_DistinctTypesAlertIndependently(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	_, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventCopy, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)

	_, recorded, err = monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventPrint, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)

	assert.Equal(t, 2, sink.count())
}

func TestCaptureMonitor_DistinctSessionsAlertIndependently(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	_, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventCopy, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)

	_, recorded, err = monitor.Report(context.Background(), "sess-2", "tok-1", "sub-1", EventCopy, nil)
	assert.NoError(t, err)
	assert.True(t, recorded)

	assert.Equal(t, 2, sink.count())
}

func TestCaptureMonitor_UnknownEventTypeRejected(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	_, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", "screenshot", nil)

	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.False(t, recorded)
	assert.Equal(t, 0, sink.count())
}

func TestCaptureMonitor_DevToolsHeuristic(t *testing.T) {
	sink := &recordingSink{}
	monitor := NewCaptureMonitor(sink, 5*time.Second)

	// Dimensions don't support the client-side claim: warn, don't alert
	narrow := &WindowMetrics{OuterWidth: 1280, InnerWidth: 1270, OuterHeight: 800, InnerHeight: 790}
	warning, recorded, err := monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventDevTools, narrow)
	assert.NoError(t, err)
	assert.False(t, recorded)
	assert.NotEmpty(t, warning)
	assert.Equal(t, 0, sink.count())

	// A docked panel leaves a wide gap
	docked := &WindowMetrics{OuterWidth: 1280, InnerWidth: 880, OuterHeight: 800, InnerHeight: 790}
	_, recorded, err = monitor.Report(context.Background(), "sess-1", "tok-1", "sub-1", EventDevTools, docked)
	assert.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, 1, sink.count())
	assert.Contains(t, sink.raised[0].Forensics, "window_metrics")
}
