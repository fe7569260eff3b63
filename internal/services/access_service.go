package services

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/protect"
	"github.com/hwainwright/gatefold/internal/repositories"
	pkglogger "github.com/hwainwright/gatefold/pkg/logger"
)

// AlertRecorder is the slice of AlertService the validator needs
type AlertRecorder interface {
	Raise(ctx context.Context, subscriberID, tokenString, alertType, severity, description string, forensics models.AlertForensics) (*models.SuspiciousAlert, error)
}

// SessionOpener is the slice of SessionService the validator needs
type SessionOpener interface {
	Open(ctx context.Context, token *models.AccessToken) (string, error)
}

// ValidationResult carries the decision plus the viewer-facing extras minted
// on a grant: the session bearer token and the watermark plan.
type ValidationResult struct {
	Decision      models.AuthDecision
	SessionToken  string
	WatermarkPlan *protect.WatermarkPlan
}

// AccessService is the access validator: the single request-facing decision
// function combining expiry and revocation checks, first-use device binding,
// and the IP-diversity check into one authorization verdict. Safe to call
// concurrently for the same token; every mutation it performs is one of the
// token repository's conditional single-statement primitives.
type AccessService struct {
	tokens         repositories.TokenRepository
	docs           repositories.DocumentRepository
	sessions       SessionOpener
	alerts         AlertRecorder
	sessionTokens  *auth.SessionTokenManager
	planner        *protect.WatermarkPlanner
	maxDistinctIPs int
	logger         *slog.Logger
	now            func() time.Time
}

// NewAccessService creates a new AccessService. maxDistinctIPs is the number
// of distinct IPs a token may accumulate before the next new one revokes it.
func NewAccessService(
	tokens repositories.TokenRepository,
	docs repositories.DocumentRepository,
	sessions SessionOpener,
	alerts AlertRecorder,
	sessionTokens *auth.SessionTokenManager,
	planner *protect.WatermarkPlanner,
	maxDistinctIPs int,
	logger *slog.Logger,
) *AccessService {
	if maxDistinctIPs < 1 {
		maxDistinctIPs = 1
	}
	return &AccessService{
		tokens:         tokens,
		docs:           docs,
		sessions:       sessions,
		alerts:         alerts,
		sessionTokens:  sessionTokens,
		planner:        planner,
		maxDistinctIPs: maxDistinctIPs,
		logger:         logger,
		now:            time.Now,
	}
}

// Validate runs the full authorization decision for one link-open attempt.
//
// Check order: lookup, revocation, expiry (no mutation), device binding,
// IP diversity, then grant side effects. A detected sharing signal revokes
// the token in the same call (fail-closed) before the denial is returned.
func (s *AccessService) Validate(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*ValidationResult, error) {
	token, err := s.tokens.GetByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown tokens read as expired to the caller so the endpoint
			// is useless as an enumeration oracle
			return &ValidationResult{Decision: models.Denied(models.DenyNotFound)}, nil
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token.Revoked {
		return &ValidationResult{Decision: models.Denied(models.DenyRevoked)}, nil
	}

	if token.IsExpired(s.now()) {
		// Routine, not abuse: no mutation, no alert
		return &ValidationResult{Decision: models.Denied(models.DenyExpired)}, nil
	}

	if fingerprint.IsZero() {
		return nil, models.ErrBadRequest
	}

	fpHash := fingerprint.Hash()

	// First-use binding is a compare-and-set: under a race of N distinct
	// devices exactly one fingerprint survives, and every other request sees
	// the winner's value here and falls into the mismatch path.
	bound, err := s.tokens.BindFingerprint(ctx, tokenString, fpHash)
	if err != nil {
		return nil, fmt.Errorf("failed to bind fingerprint: %w", err)
	}

	if bound != fpHash {
		if err := s.tokens.Revoke(ctx, tokenString, models.RevocationReasonDeviceMismatch); err != nil {
			return nil, fmt.Errorf("failed to revoke token: %w", err)
		}
		s.raise(ctx, token, models.AlertTypeDeviceMismatch, models.SeverityCritical,
			"access attempt from a different device than the one bound to this link",
			models.AlertForensics{
				"bound_fingerprint":     bound,
				"presented_fingerprint": fpHash,
				"presented_user_agent":  fingerprint.UserAgent,
				"ip":                    ip,
				"at":                    s.now().Format(time.RFC3339),
			})
		return &ValidationResult{Decision: models.Denied(models.DenyDeviceMismatch)}, nil
	}

	// IP diversity runs even on a matching device: a forwarded link opened
	// from the same browser profile still trips on the new network.
	ips, err := s.tokens.ObserveIP(ctx, tokenString, ip)
	if err != nil {
		return nil, fmt.Errorf("failed to record IP: %w", err)
	}

	if len(ips) > s.maxDistinctIPs {
		if err := s.tokens.Revoke(ctx, tokenString, models.RevocationReasonMultipleIPs); err != nil {
			return nil, fmt.Errorf("failed to revoke token: %w", err)
		}
		s.raise(ctx, token, models.AlertTypeMultipleIPs, models.SeverityHigh,
			fmt.Sprintf("link opened from %d distinct IP addresses", len(ips)),
			models.AlertForensics{
				"ips": ips,
				"at":  s.now().Format(time.RFC3339),
			})
		return &ValidationResult{Decision: models.Denied(models.DenyMultipleIPs)}, nil
	}

	count, err := s.tokens.IncrementAccess(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("failed to increment access count: %w", err)
	}

	// Advisory cap: tracked and surfaced, not enforced
	if token.MaxAccessCount > 0 && count == token.MaxAccessCount+1 {
		s.raise(ctx, token, models.AlertTypeAccessLimit, models.SeverityLow,
			fmt.Sprintf("access count passed the configured cap of %d", token.MaxAccessCount),
			models.AlertForensics{"access_count": count, "max_access_count": token.MaxAccessCount})
	}

	doc, err := s.docs.GetByID(ctx, token.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	sessionID, err := s.sessions.Open(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	seed, err := randomSeed()
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.sessionTokens.Generate(sessionID, tokenString, token.SubscriberID, seed)
	if err != nil {
		return nil, err
	}

	identity := models.SubscriberIdentity{
		ID:     token.SubscriberID,
		Name:   token.SubscriberName,
		Number: token.SubscriberNumber,
	}

	plan := s.planner.Plan(identity, sessionID, doc.PageCount, seed, s.now())

	s.logger.InfoContext(ctx, "access granted",
		slog.String("token", pkglogger.TruncatedToken(tokenString)),
		slog.String("subscriber_id", token.SubscriberID),
		slog.String("document_id", token.DocumentID),
		slog.String("session_id", sessionID),
		slog.Int("access_count", count),
	)

	return &ValidationResult{
		Decision: models.AuthDecision{
			Granted: true,
			Grant: &models.Grant{
				DocumentRef:  doc.StorageKey,
				Presentation: doc.Presentation(),
				Subscriber:   identity,
				SessionID:    sessionID,
				SessionSeed:  seed,
				AccessCount:  count,
			},
		},
		SessionToken:  sessionToken,
		WatermarkPlan: plan,
	}, nil
}

// raise records an alert on a denial path. The revocation already happened by
// the time this runs; a failed alert write is logged loudly but does not undo
// the (correct) denial.
func (s *AccessService) raise(ctx context.Context, token *models.AccessToken, alertType, severity, description string, forensics models.AlertForensics) {
	if _, err := s.alerts.Raise(ctx, token.SubscriberID, token.Token, alertType, severity, description, forensics); err != nil {
		s.logger.ErrorContext(ctx, "alert emission failed",
			slog.String("alert_type", alertType),
			slog.String("token", pkglogger.TruncatedToken(token.Token)),
			slog.Any("error", err),
		)
	}
}

func randomSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate session seed: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1), nil
}
