package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/repositories"
	pkglogger "github.com/hwainwright/gatefold/pkg/logger"
	"github.com/google/uuid"
)

// SessionStatus pairs a session with its read-time liveness
type SessionStatus struct {
	*models.ViewingSession
	Live bool `json:"live"`
}

// SessionService is the session tracker: it opens sessions on grant, records
// heartbeats, and reports liveness. Liveness is derived at read time from the
// last heartbeat; nothing sweeps sessions in the background.
type SessionService struct {
	repo              repositories.SessionRepository
	tokens            repositories.TokenRepository
	alerts            AlertRecorder
	livenessWindow    time.Duration
	maxPagesPerMinute int
	logger            *slog.Logger
	now               func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(
	repo repositories.SessionRepository,
	tokens repositories.TokenRepository,
	alerts AlertRecorder,
	livenessWindow time.Duration,
	maxPagesPerMinute int,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		repo:              repo,
		tokens:            tokens,
		alerts:            alerts,
		livenessWindow:    livenessWindow,
		maxPagesPerMinute: maxPagesPerMinute,
		logger:            logger,
		now:               time.Now,
	}
}

// Open creates a session for a freshly granted validation. A second live
// session against the same token is allowed (two tabs are legitimate) but
// recorded as a concurrent-session signal for operators.
func (s *SessionService) Open(ctx context.Context, token *models.AccessToken) (string, error) {
	now := s.now()

	existing, err := s.repo.ListForToken(ctx, token.Token)
	if err != nil {
		return "", fmt.Errorf("failed to check existing sessions: %w", err)
	}

	liveCount := 0
	for _, sess := range existing {
		if sess.IsLive(now, s.livenessWindow) {
			liveCount++
		}
	}

	session := &models.ViewingSession{
		ID:               uuid.New().String(),
		Token:            token.Token,
		SubscriberID:     token.SubscriberID,
		SubscriberName:   token.SubscriberName,
		SubscriberNumber: token.SubscriberNumber,
		DocumentID:       token.DocumentID,
		StartedAt:        now,
		LastSeen:         now,
		CurrentPage:      1,
		PagesRead:        1,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	if liveCount > 0 {
		if _, err := s.alerts.Raise(ctx, token.SubscriberID, token.Token,
			models.AlertTypeConcurrentSessions, models.SeverityMedium,
			fmt.Sprintf("%d viewing sessions live at the same time for one link", liveCount+1),
			models.AlertForensics{
				"live_sessions": liveCount + 1,
				"session_id":    session.ID,
				"at":            now.Format(time.RFC3339),
			}); err != nil {
			s.logger.ErrorContext(ctx, "alert emission failed",
				slog.String("alert_type", models.AlertTypeConcurrentSessions),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "session opened",
		slog.String("session_id", session.ID),
		slog.String("subscriber_id", token.SubscriberID),
		slog.String("token", pkglogger.TruncatedToken(token.Token)),
	)

	return session.ID, nil
}

// Heartbeat records viewer liveness and the current page. A heartbeat against
// a session whose token has since been revoked or expired fails with
// ErrSessionInvalidated and closes the session; the client must re-validate
// from scratch, this is not a transient error.
func (s *SessionService) Heartbeat(ctx context.Context, sessionID string, page int) error {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrSessionInvalidated
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	token, err := s.tokens.GetByToken(ctx, session.Token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = s.repo.Delete(ctx, sessionID)
			return models.ErrSessionInvalidated
		}
		return fmt.Errorf("failed to load token: %w", err)
	}

	now := s.now()
	if !token.IsActive(now) {
		_ = s.repo.Delete(ctx, sessionID)
		return models.ErrSessionInvalidated
	}

	// pagesRead counts pages traversed, not heartbeats: a reader who jumps
	// N pages between beats has turned N pages
	pagesRead := session.PagesRead
	if page > 0 && page != session.CurrentPage {
		delta := page - session.CurrentPage
		if delta < 0 {
			delta = -delta
		}
		pagesRead += delta
	}

	// Reading-velocity signal: a human reader does not turn pages this fast
	elapsed := now.Sub(session.StartedAt)
	if s.maxPagesPerMinute > 0 && elapsed >= time.Minute && pagesRead > session.PagesRead {
		rate := float64(pagesRead) / elapsed.Minutes()
		if rate > float64(s.maxPagesPerMinute) {
			if _, err := s.alerts.Raise(ctx, session.SubscriberID, session.Token,
				models.AlertTypeReadingVelocity, models.SeverityMedium,
				fmt.Sprintf("session advancing %.0f pages per minute", rate),
				models.AlertForensics{
					"session_id":       sessionID,
					"pages_read":       pagesRead,
					"elapsed_seconds":  int(elapsed.Seconds()),
					"pages_per_minute": rate,
				}); err != nil {
				s.logger.ErrorContext(ctx, "alert emission failed",
					slog.String("alert_type", models.AlertTypeReadingVelocity),
					slog.Any("error", err),
				)
			}
		}
	}

	if page <= 0 {
		page = session.CurrentPage
	}

	if err := s.repo.Touch(ctx, sessionID, page, pagesRead, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrSessionInvalidated
		}
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

// ListSessions reports every recorded session with its read-time liveness
func (s *SessionService) ListSessions(ctx context.Context) ([]*SessionStatus, error) {
	sessions, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.now()
	statuses := make([]*SessionStatus, 0, len(sessions))
	for _, sess := range sessions {
		statuses = append(statuses, &SessionStatus{
			ViewingSession: sess,
			Live:           sess.IsLive(now, s.livenessWindow),
		})
	}

	return statuses, nil
}

// CloseForToken drops every session recorded against a token. Called when an
// operator revokes a link so viewers are cut off at the next heartbeat rather
// than the next validation.
func (s *SessionService) CloseForToken(ctx context.Context, tokenString string) error {
	sessions, err := s.repo.ListForToken(ctx, tokenString)
	if err != nil {
		return fmt.Errorf("failed to list token sessions: %w", err)
	}

	for _, sess := range sessions {
		if err := s.repo.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("failed to close session %s: %w", sess.ID, err)
		}
	}

	return nil
}
