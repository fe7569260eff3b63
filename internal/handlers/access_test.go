package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hwainwright/gatefold/internal/handlers"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/protect"
	"github.com/hwainwright/gatefold/internal/services"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAccessValidator implements handlers.AccessValidator for testing
type mockAccessValidator struct {
	ValidateFunc func(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error)
}

func (m *mockAccessValidator) Validate(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, tokenString, fingerprint, ip)
	}
	return &services.ValidationResult{Decision: models.Denied(models.DenyNotFound)}, nil
}

func validateBody(token string) string {
	return `{
		"token": "` + token + `",
		"fingerprint": {
			"user_agent": "Mozilla/5.0",
			"screen_resolution": "1920x1080",
			"timezone": "Europe/Berlin",
			"locale": "de-DE"
		}
	}`
}

func newAccessHandler(mock *mockAccessValidator) *handlers.AccessHandler {
	return handlers.NewAccessHandler(mock, &pkghttp.IPConfig{}, slog.Default())
}

func TestAccessHandler_Validate_Granted(t *testing.T) {
	grantedAt := time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC)
	planner := protect.NewWatermarkPlanner(3)

	mock := &mockAccessValidator{
		ValidateFunc: func(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error) {
			assert.Equal(t, "tok-0123456789abcdef", tokenString)
			assert.Equal(t, "Mozilla/5.0", fingerprint.UserAgent)
			assert.NotEmpty(t, ip)

			identity := models.SubscriberIdentity{ID: "sub-1", Name: "Greta Vogel", Number: "A-48213"}
			return &services.ValidationResult{
				Decision: models.AuthDecision{
					Granted: true,
					Grant: &models.Grant{
						DocumentRef: "editions/edition-1.pdf",
						Subscriber:  identity,
						SessionID:   "sess-1",
						AccessCount: 1,
					},
				},
				SessionToken:  "signed.jwt.value",
				WatermarkPlan: planner.Plan(identity, "sess-1", 2, 42, grantedAt),
			}, nil
		},
	}
	h := newAccessHandler(mock)

	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(validateBody("tok-0123456789abcdef")))
	req.RemoteAddr = "203.0.113.10:4711"
	w := httptest.NewRecorder()
	h.Validate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.ValidateAccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Granted)
	assert.Equal(t, "editions/edition-1.pdf", resp.Grant.DocumentRef)
	assert.Equal(t, "signed.jwt.value", resp.SessionToken)
	require.NotNil(t, resp.WatermarkPlan)
	assert.Len(t, resp.WatermarkPlan.Pages, 2)
}

func TestAccessHandler_Validate_DenialUsesReaderMessage(t *testing.T) {
	mock := &mockAccessValidator{
		ValidateFunc: func(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error) {
			return &services.ValidationResult{Decision: models.Denied(models.DenyDeviceMismatch)}, nil
		},
	}
	h := newAccessHandler(mock)

	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(validateBody("tok-0123456789abcdef")))
	w := httptest.NewRecorder()
	h.Validate(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access_denied", resp.Error)
	assert.Equal(t, models.DenyDeviceMismatch.ReaderMessage(), resp.Message)
	// The internal reason taxonomy never appears in the body
	assert.NotContains(t, w.Body.String(), "device_mismatch")
}

func TestAccessHandler_Validate_UnknownAndExpiredIndistinguishable(t *testing.T) {
	responses := make([]string, 0, 2)
	for _, reason := range []models.DenyReason{models.DenyNotFound, models.DenyExpired} {
		reason := reason
		mock := &mockAccessValidator{
			ValidateFunc: func(ctx context.Context, tokenString string, fingerprint models.DeviceFingerprint, ip string) (*services.ValidationResult, error) {
				return &services.ValidationResult{Decision: models.Denied(reason)}, nil
			},
		}
		h := newAccessHandler(mock)

		req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(validateBody("tok-0123456789abcdef")))
		w := httptest.NewRecorder()
		h.Validate(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		responses = append(responses, w.Body.String())
	}

	assert.Equal(t, responses[0], responses[1])
}

func TestAccessHandler_Validate_MalformedBody(t *testing.T) {
	h := newAccessHandler(&mockAccessValidator{})

	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Validate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccessHandler_Validate_MissingFingerprintFields(t *testing.T) {
	h := newAccessHandler(&mockAccessValidator{})

	body := `{"token": "tok-0123456789abcdef", "fingerprint": {"user_agent": "Mozilla/5.0"}}`
	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Validate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccessHandler_Validate_ShortToken(t *testing.T) {
	h := newAccessHandler(&mockAccessValidator{})

	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(validateBody("short")))
	w := httptest.NewRecorder()
	h.Validate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
