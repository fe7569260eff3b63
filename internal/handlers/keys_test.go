package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/handlers"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOperatorKeyRepo struct {
	key        *models.OperatorKey
	RevokeFunc func(ctx context.Context, id string) error
	RevokedIDs []string
}

func (m *mockOperatorKeyRepo) Create(ctx context.Context, key *models.OperatorKey) error {
	return nil
}

func (m *mockOperatorKeyRepo) GetByID(ctx context.Context, id string) (*models.OperatorKey, error) {
	if m.key != nil && m.key.ID == id {
		return m.key, nil
	}
	return nil, models.ErrNotFound
}

func (m *mockOperatorKeyRepo) Revoke(ctx context.Context, id string) error {
	m.RevokedIDs = append(m.RevokedIDs, id)
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, id)
	}
	return nil
}

// keyTestSetup routes the revocation endpoint behind the real operator gate
// so the self-revocation guard sees an authenticated key id.
func keyTestSetup(t *testing.T, repo *mockOperatorKeyRepo) (http.Handler, string, string) {
	t.Helper()

	manager := auth.NewOperatorKeyManager()
	plainKey, id, secretHash, err := manager.Generate()
	require.NoError(t, err)

	repo.key = &models.OperatorKey{
		ID:         id,
		Name:       "ops",
		SecretHash: secretHash,
		CreatedAt:  time.Now(),
	}

	h := handlers.NewOperatorKeyHandler(repo, slog.Default())

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.OperatorAuth(manager, repo))
		r.Delete("/ops/keys/{id}", h.Revoke)
	})

	return router, plainKey, id
}

func TestOperatorKeyHandler_Revoke_Success(t *testing.T) {
	repo := &mockOperatorKeyRepo{}
	router, plainKey, _ := keyTestSetup(t, repo)

	req := httptest.NewRequest("DELETE", "/ops/keys/0123456789abcdef", nil)
	req.Header.Set("X-API-Key", plainKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"0123456789abcdef"}, repo.RevokedIDs)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["revoked"])
	assert.Equal(t, "0123456789abcdef", body["key_id"])
}

func TestOperatorKeyHandler_Revoke_SelfRejected(t *testing.T) {
	repo := &mockOperatorKeyRepo{}
	router, plainKey, ownID := keyTestSetup(t, repo)

	req := httptest.NewRequest("DELETE", "/ops/keys/"+ownID, nil)
	req.Header.Set("X-API-Key", plainKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.RevokedIDs)
}

func TestOperatorKeyHandler_Revoke_UnknownKey(t *testing.T) {
	repo := &mockOperatorKeyRepo{
		RevokeFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	router, plainKey, _ := keyTestSetup(t, repo)

	req := httptest.NewRequest("DELETE", "/ops/keys/ffffffffffffffff", nil)
	req.Header.Set("X-API-Key", plainKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperatorKeyHandler_Revoke_MissingAPIKey(t *testing.T) {
	repo := &mockOperatorKeyRepo{}
	router, _, _ := keyTestSetup(t, repo)

	req := httptest.NewRequest("DELETE", "/ops/keys/0123456789abcdef", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, repo.RevokedIDs)
}
