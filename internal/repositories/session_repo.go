package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/redis/go-redis/v9"
)

// SessionRepository stores viewing sessions. Sessions are ephemeral liveness
// state: staleness is always computed at read time from last_seen, never by a
// background sweep.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ViewingSession) error
	Get(ctx context.Context, id string) (*models.ViewingSession, error)
	Touch(ctx context.Context, id string, page, pagesRead int, now time.Time) error
	Delete(ctx context.Context, id string) error
	ListForToken(ctx context.Context, tokenString string) ([]*models.ViewingSession, error)
	ListAll(ctx context.Context) ([]*models.ViewingSession, error)
}

// SessionRepositoryImpl implements SessionRepository on redis. Each session is
// a hash plus index-set memberships; keys carry a generous TTL purely as
// storage hygiene.
type SessionRepositoryImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a redis-backed session repository. ttl bounds
// how long an abandoned session's keys linger.
func NewSessionRepository(client *redis.Client, ttl time.Duration) SessionRepository {
	return &SessionRepositoryImpl{client: client, ttl: ttl}
}

func sessionKey(id string) string      { return "session:" + id }
func tokenSessionsKey(t string) string { return "token_sessions:" + t }

const sessionsIndexKey = "sessions:index"

// Create stores a new session and registers it in the indexes
func (r *SessionRepositoryImpl) Create(ctx context.Context, s *models.ViewingSession) error {
	fields := map[string]interface{}{
		"token":             s.Token,
		"subscriber_id":     s.SubscriberID,
		"subscriber_name":   s.SubscriberName,
		"subscriber_number": s.SubscriberNumber,
		"document_id":       s.DocumentID,
		"started_at":        s.StartedAt.Format(time.RFC3339Nano),
		"last_seen":         s.LastSeen.Format(time.RFC3339Nano),
		"current_page":      s.CurrentPage,
		"pages_read":        s.PagesRead,
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(s.ID), fields)
	pipe.Expire(ctx, sessionKey(s.ID), r.ttl)
	pipe.SAdd(ctx, sessionsIndexKey, s.ID)
	pipe.SAdd(ctx, tokenSessionsKey(s.Token), s.ID)
	pipe.Expire(ctx, tokenSessionsKey(s.Token), r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by id
func (r *SessionRepositoryImpl) Get(ctx context.Context, id string) (*models.ViewingSession, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}

	return sessionFromFields(id, fields)
}

// Touch records a heartbeat: last_seen, current page, cumulative pages read
func (r *SessionRepositoryImpl) Touch(ctx context.Context, id string, page, pagesRead int, now time.Time) error {
	exists, err := r.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return models.ErrNotFound
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(id), map[string]interface{}{
		"last_seen":    now.Format(time.RFC3339Nano),
		"current_page": page,
		"pages_read":   pagesRead,
	})
	pipe.Expire(ctx, sessionKey(id), r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Delete removes a session and its index memberships
func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, sessionsIndexKey, id)
	pipe.SRem(ctx, tokenSessionsKey(s.Token), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListForToken retrieves all sessions recorded against a token
func (r *SessionRepositoryImpl) ListForToken(ctx context.Context, tokenString string) ([]*models.ViewingSession, error) {
	ids, err := r.client.SMembers(ctx, tokenSessionsKey(tokenString)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list token sessions: %w", err)
	}

	return r.collect(ctx, ids)
}

// ListAll retrieves every recorded session
func (r *SessionRepositoryImpl) ListAll(ctx context.Context) ([]*models.ViewingSession, error) {
	ids, err := r.client.SMembers(ctx, sessionsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return r.collect(ctx, ids)
}

// collect resolves ids to sessions, dropping entries whose hash has already
// expired and pruning their index membership opportunistically.
func (r *SessionRepositoryImpl) collect(ctx context.Context, ids []string) ([]*models.ViewingSession, error) {
	sessions := make([]*models.ViewingSession, 0, len(ids))

	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err == models.ErrNotFound {
			r.client.SRem(ctx, sessionsIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

func sessionFromFields(id string, fields map[string]string) (*models.ViewingSession, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, fields["started_at"])
	if err != nil {
		return nil, fmt.Errorf("malformed session %s: %w", id, err)
	}
	lastSeen, err := time.Parse(time.RFC3339Nano, fields["last_seen"])
	if err != nil {
		return nil, fmt.Errorf("malformed session %s: %w", id, err)
	}

	page, _ := strconv.Atoi(fields["current_page"])
	pagesRead, _ := strconv.Atoi(fields["pages_read"])

	return &models.ViewingSession{
		ID:               id,
		Token:            fields["token"],
		SubscriberID:     fields["subscriber_id"],
		SubscriberName:   fields["subscriber_name"],
		SubscriberNumber: fields["subscriber_number"],
		DocumentID:       fields["document_id"],
		StartedAt:        startedAt,
		LastSeen:         lastSeen,
		CurrentPage:      page,
		PagesRead:        pagesRead,
	}, nil
}
