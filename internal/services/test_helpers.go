package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hwainwright/gatefold/internal/models"
)

// InMemoryTokenRepository implements TokenRepository for testing with the same
// conditional-mutation semantics as the postgres implementation. All methods
// are guarded by one mutex so concurrent-validation tests exercise the real
// atomicity contract.
type InMemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*models.AccessToken
}

func NewInMemoryTokenRepository() *InMemoryTokenRepository {
	return &InMemoryTokenRepository{tokens: make(map[string]*models.AccessToken)}
}

func (r *InMemoryTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.Token]; exists {
		return models.ErrConflict
	}
	for _, t := range r.tokens {
		if t.SubscriberID == token.SubscriberID && t.DocumentID == token.DocumentID {
			return models.ErrConflict
		}
	}

	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *InMemoryTokenRepository) GetByToken(ctx context.Context, tokenString string) (*models.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	if !ok {
		return nil, models.ErrNotFound
	}

	copied := *token
	copied.IPAddresses = append([]string(nil), token.IPAddresses...)
	return &copied, nil
}

func (r *InMemoryTokenRepository) BindFingerprint(ctx context.Context, tokenString, fingerprint string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	if !ok {
		return "", models.ErrNotFound
	}

	if token.DeviceFingerprint == nil || *token.DeviceFingerprint == "" {
		fp := fingerprint
		token.DeviceFingerprint = &fp
	}

	return *token.DeviceFingerprint, nil
}

func (r *InMemoryTokenRepository) ObserveIP(ctx context.Context, tokenString, ip string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	if !ok {
		return nil, models.ErrNotFound
	}

	if !token.HasSeenIP(ip) {
		token.IPAddresses = append(token.IPAddresses, ip)
	}

	return append([]string(nil), token.IPAddresses...), nil
}

func (r *InMemoryTokenRepository) IncrementAccess(ctx context.Context, tokenString string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	if !ok {
		return 0, models.ErrNotFound
	}

	token.AccessCount++
	token.Used = true
	return token.AccessCount, nil
}

func (r *InMemoryTokenRepository) Revoke(ctx context.Context, tokenString, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	if !ok {
		return models.ErrNotFound
	}

	token.Revoked = true
	if token.RevokedReason == nil {
		now := time.Now()
		token.RevokedReason = &reason
		token.RevokedAt = &now
	}

	return nil
}

func (r *InMemoryTokenRepository) ListBySubscriber(ctx context.Context, subscriberID string, limit, offset int) ([]*models.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.AccessToken, 0)
	for _, t := range r.tokens {
		if t.SubscriberID == subscriberID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *InMemoryTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

// RecordingAlertRecorder implements AlertRecorder and captures every raised
// alert for assertions. FailWith, when set, makes Raise fail.
type RecordingAlertRecorder struct {
	mu       sync.Mutex
	Raised   []*models.SuspiciousAlert
	FailWith error
}

func (r *RecordingAlertRecorder) Raise(ctx context.Context, subscriberID, tokenString, alertType, severity, description string, forensics models.AlertForensics) (*models.SuspiciousAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return nil, r.FailWith
	}

	alert := &models.SuspiciousAlert{
		SubscriberID: subscriberID,
		Token:        tokenString,
		AlertType:    alertType,
		Severity:     severity,
		Description:  description,
		Forensics:    forensics,
	}
	r.Raised = append(r.Raised, alert)
	return alert, nil
}

// ByType returns the recorded alerts of one type
func (r *RecordingAlertRecorder) ByType(alertType string) []*models.SuspiciousAlert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.SuspiciousAlert, 0)
	for _, a := range r.Raised {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

// MockSessionOpener implements SessionOpener for testing
type MockSessionOpener struct {
	OpenFunc func(ctx context.Context, token *models.AccessToken) (string, error)

	mu     sync.Mutex
	Opened int
}

func (m *MockSessionOpener) Open(ctx context.Context, token *models.AccessToken) (string, error) {
	m.mu.Lock()
	m.Opened++
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, token)
	}
	return "session-0001", nil
}

// MockDocumentRepository implements DocumentRepository for testing
type MockDocumentRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Document, error)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &models.Document{
		ID:         id,
		Title:      "Morning Edition",
		StorageKey: "editions/" + id + ".pdf",
		PageCount:  24,
	}, nil
}

// InMemorySessionRepository implements SessionRepository for testing
type InMemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.ViewingSession
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[string]*models.ViewingSession)}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *models.ViewingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *InMemorySessionRepository) Get(ctx context.Context, id string) (*models.ViewingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	copied := *session
	return &copied, nil
}

func (r *InMemorySessionRepository) Touch(ctx context.Context, id string, page, pagesRead int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return models.ErrNotFound
	}

	session.CurrentPage = page
	session.PagesRead = pagesRead
	session.LastSeen = now
	return nil
}

func (r *InMemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemorySessionRepository) ListForToken(ctx context.Context, tokenString string) ([]*models.ViewingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.ViewingSession, 0)
	for _, s := range r.sessions {
		if s.Token == tokenString {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *InMemorySessionRepository) ListAll(ctx context.Context) ([]*models.ViewingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.ViewingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

// MockAlertRepository implements AlertRepository for testing
type MockAlertRepository struct {
	CreateFunc                  func(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error)
	GetByIDFunc                 func(ctx context.Context, id uuid.UUID) (*models.SuspiciousAlert, error)
	ListUnresolvedFunc          func(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error)
	ListByTokenFunc             func(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error)
	ResolveFunc                 func(ctx context.Context, id uuid.UUID, operatorID, action string) error
	DeleteResolvedOlderThanFunc func(ctx context.Context, days int) (int64, error)
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, alert)
	}
	created := *alert
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	return &created, nil
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousAlert, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAlertRepository) ListUnresolved(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	if m.ListUnresolvedFunc != nil {
		return m.ListUnresolvedFunc(ctx, severity, limit, offset)
	}
	return []*models.SuspiciousAlert{}, nil
}

func (m *MockAlertRepository) ListByToken(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	if m.ListByTokenFunc != nil {
		return m.ListByTokenFunc(ctx, tokenString, limit, offset)
	}
	return []*models.SuspiciousAlert{}, nil
}

func (m *MockAlertRepository) Resolve(ctx context.Context, id uuid.UUID, operatorID, action string) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id, operatorID, action)
	}
	return nil
}

func (m *MockAlertRepository) DeleteResolvedOlderThan(ctx context.Context, days int) (int64, error) {
	if m.DeleteResolvedOlderThanFunc != nil {
		return m.DeleteResolvedOlderThanFunc(ctx, days)
	}
	return 0, nil
}

// MockAlertNotifier implements AlertNotifier for testing
type MockAlertNotifier struct {
	NotifyAlertFunc func(ctx context.Context, alert *models.SuspiciousAlert) error

	mu       sync.Mutex
	Notified []*models.SuspiciousAlert
}

func (m *MockAlertNotifier) NotifyAlert(ctx context.Context, alert *models.SuspiciousAlert) error {
	m.mu.Lock()
	m.Notified = append(m.Notified, alert)
	m.mu.Unlock()

	if m.NotifyAlertFunc != nil {
		return m.NotifyAlertFunc(ctx, alert)
	}
	return nil
}
