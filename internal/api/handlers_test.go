package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
	"github.com/zzenonn/partyphoto/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockPhotoService struct {
	listFunc   func(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error)
	uploadFunc func(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error)
	deleteFunc func(ctx context.Context, partyKey, photoKey string) error
}

func (m *mockPhotoService) ListPhotos(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, query)
	}
	return domain.PhotoList{Photos: []domain.Photo{}}, nil
}

func (m *mockPhotoService) BatchUpload(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, req)
	}
	return domain.BatchUploadResult{Uploads: []domain.UploadGrant{}, Errors: []domain.UploadError{}}, nil
}

func (m *mockPhotoService) SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, partyKey, photoKey)
	}
	return nil
}

type mockAuthService struct {
	requestFunc func(ctx context.Context, email string) error
	redeemFunc  func(ctx context.Context, token string) (domain.Assertion, error)
	verifyFunc  func(ctx context.Context, assertion string) (domain.Identity, error)
}

func (m *mockAuthService) RequestLogin(ctx context.Context, email string) error {
	if m.requestFunc != nil {
		return m.requestFunc(ctx, email)
	}
	return nil
}

func (m *mockAuthService) Redeem(ctx context.Context, token string) (domain.Assertion, error) {
	if m.redeemFunc != nil {
		return m.redeemFunc(ctx, token)
	}
	return domain.Assertion{}, nil
}

func (m *mockAuthService) Verify(ctx context.Context, assertion string) (domain.Identity, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, assertion)
	}
	return domain.Identity{Parties: []domain.PartyMembership{}}, nil
}

type mockLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	m.keys = append(m.keys, key)
	return m.allowed, m.retryAfter, m.err
}

func serve(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router, err := NewRouter(h, nil)
	require.NoError(t, err)
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func TestListPhotos(t *testing.T) {
	var got domain.ListPhotosQuery
	cursor := "1_b_x.jpg"
	photos := &mockPhotoService{
		listFunc: func(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error) {
			got = query
			return domain.PhotoList{
				Photos:     []domain.Photo{{PhotoKey: "2_a_y.jpg", PartyKey: "P", URL: "https://signed/2_a_y.jpg"}},
				NextCursor: &cursor,
			}, nil
		},
	}
	h := NewHandler(photos, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodGet, "/photos?partyKey=P&cursor=9_z&limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.ListPhotosQuery{PartyKey: "P", Cursor: "9_z", Limit: 100}, got)

	body := decodeBody(t, rec)
	assert.Equal(t, cursor, body["nextCursor"])
	list, ok := body["photos"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "https://signed/2_a_y.jpg", list[0].(map[string]interface{})["url"])
}

func TestListPhotos_NullCursor(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodGet, "/photos?partyKey=P&limit=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nextCursor":null`)
	assert.Contains(t, rec.Body.String(), `"photos":[]`)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"invalid input", perrors.InvalidInputError("missing partyKey"), http.StatusBadRequest, "invalid input: missing partyKey"},
		{"unauthorized", perrors.ErrUnauthorized, http.StatusUnauthorized, "Invalid or expired token"},
		{"infrastructure", perrors.InfrastructureError("list photos", errors.New("secret detail")), http.StatusInternalServerError, "Failed to retrieve photos"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Failed to retrieve photos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photos := &mockPhotoService{
				listFunc: func(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error) {
					return domain.PhotoList{}, tt.err
				},
			}
			h := NewHandler(photos, &mockAuthService{}, nil)

			rec := serve(t, h, http.MethodGet, "/photos?partyKey=P", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, rec)["message"])
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestBatchUpload(t *testing.T) {
	var got domain.BatchUploadRequest
	photos := &mockPhotoService{
		uploadFunc: func(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error) {
			got = req
			return domain.BatchUploadResult{
				Uploads: []domain.UploadGrant{{FileName: "a.jpg", PhotoKey: "1_id_a.jpg", PresignedURL: "https://put"}},
				Errors:  []domain.UploadError{{FileName: "unknown", Error: "missing fileName or contentType"}},
			}, nil
		},
	}
	h := NewHandler(photos, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodPost, "/photos/uploads",
		`{"partyKey":"P","files":[{"fileName":"a.jpg","contentType":"image/jpeg"},{"fileName":"","contentType":"image/png"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "P", got.PartyKey)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "image/jpeg", got.Files[0].ContentType)

	body := decodeBody(t, rec)
	uploads := body["uploads"].([]interface{})
	require.Len(t, uploads, 1)
	assert.Equal(t, "https://put", uploads[0].(map[string]interface{})["presignedUrl"])
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "unknown", errs[0].(map[string]interface{})["fileName"])
}

func TestBatchUpload_MalformedJSON(t *testing.T) {
	called := false
	photos := &mockPhotoService{
		uploadFunc: func(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error) {
			called = true
			return domain.BatchUploadResult{}, nil
		},
	}
	h := NewHandler(photos, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodPost, "/photos/uploads", `{"partyKey":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON in request body", decodeBody(t, rec)["message"])
	assert.False(t, called)
}

func TestSoftDeletePhoto(t *testing.T) {
	var gotParty, gotPhoto string
	photos := &mockPhotoService{
		deleteFunc: func(ctx context.Context, partyKey, photoKey string) error {
			gotParty, gotPhoto = partyKey, photoKey
			return nil
		},
	}
	h := NewHandler(photos, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodPost, "/photos/delete", `{"partyKey":"P","photoKey":"1_a_x.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Photo soft-deleted successfully", decodeBody(t, rec)["message"])
	assert.Equal(t, "P", gotParty)
	assert.Equal(t, "1_a_x.jpg", gotPhoto)
}

func TestSoftDeletePhoto_EmptyBody(t *testing.T) {
	photos := &mockPhotoService{
		deleteFunc: func(ctx context.Context, partyKey, photoKey string) error {
			return perrors.InvalidInputError("missing partyKey or photoKey")
		},
	}
	h := NewHandler(photos, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodPost, "/photos/delete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestLogin(t *testing.T) {
	var gotEmail string
	auth := &mockAuthService{
		requestFunc: func(ctx context.Context, email string) error {
			gotEmail = email
			return nil
		},
	}
	limiter := &mockLimiter{allowed: true}
	h := NewHandler(&mockPhotoService{}, auth, limiter)

	rec := serve(t, h, http.MethodPost, "/auth/login-link", `{"email":"guest@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login link sent", decodeBody(t, rec)["message"])
	assert.Equal(t, "guest@example.com", gotEmail)
	assert.Len(t, limiter.keys, 1)
}

func TestRequestLogin_RateLimited(t *testing.T) {
	called := false
	auth := &mockAuthService{
		requestFunc: func(ctx context.Context, email string) error {
			called = true
			return nil
		},
	}
	h := NewHandler(&mockPhotoService{}, auth, &mockLimiter{allowed: false, retryAfter: 1500 * time.Millisecond})

	rec := serve(t, h, http.MethodPost, "/auth/login-link", `{"email":"guest@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.False(t, called)
}

func TestRequestLogin_LimiterFailureAllows(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, &mockLimiter{err: errors.New("redis down")})

	rec := serve(t, h, http.MethodPost, "/auth/login-link", `{"email":"guest@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func loginLinkStatuses(t *testing.T, router http.Handler, n int) (accepted, limited int) {
	t.Helper()
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login-link", strings.NewReader(`{"email":"guest@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.RemoteAddr = "203.0.113.9:4711"

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusOK:
			accepted++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("request %d: unexpected status %d", i+1, rec.Code)
		}
	}
	return accepted, limited
}

func TestRequestLogin_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, ratelimit.NewMemoryLimiter(2, time.Minute))
	router, err := NewRouter(h, nil)
	require.NoError(t, err)

	accepted, limited := loginLinkStatuses(t, router, 10)
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 8, limited)
}

func TestRequestLogin_HonoursForwardedForFromTrustedProxy(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, ratelimit.NewMemoryLimiter(2, time.Minute))
	router, err := NewRouter(h, []string{"203.0.113.0/24"})
	require.NoError(t, err)

	accepted, limited := loginLinkStatuses(t, router, 10)
	assert.Equal(t, 10, accepted, "each forwarded client has its own budget")
	assert.Zero(t, limited)
}

func TestNewRouter_InvalidTrustedProxy(t *testing.T) {
	_, err := NewRouter(NewHandler(&mockPhotoService{}, &mockAuthService{}, nil), []string{"not-an-ip"})
	assert.Error(t, err)
}

func TestRedeem(t *testing.T) {
	expires := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	auth := &mockAuthService{
		redeemFunc: func(ctx context.Context, token string) (domain.Assertion, error) {
			if token != "good" {
				return domain.Assertion{}, perrors.ErrUnauthorized
			}
			return domain.Assertion{Assertion: "signed.jwt.value", ExpiresAt: expires}, nil
		},
	}
	h := NewHandler(&mockPhotoService{}, auth, nil)

	rec := serve(t, h, http.MethodPost, "/auth/redeem", `{"token":"good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "signed.jwt.value", body["assertion"])
	assert.Equal(t, "2024-06-02T12:00:00Z", body["expiresAt"])

	rec = serve(t, h, http.MethodPost, "/auth/redeem", `{"token":"used"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"assertion field", `{"assertion":"abc"}`},
		{"token alias", `{"token":"abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			auth := &mockAuthService{
				verifyFunc: func(ctx context.Context, assertion string) (domain.Identity, error) {
					got = assertion
					return domain.Identity{Email: "guest@example.com", Parties: []domain.PartyMembership{}}, nil
				},
			}
			h := NewHandler(&mockPhotoService{}, auth, nil)

			rec := serve(t, h, http.MethodPost, "/auth/verify", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "abc", got)
			assert.Contains(t, rec.Body.String(), `"parties":[]`)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodOptions, "/photos/uploads", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := NewHandler(&mockPhotoService{}, &mockAuthService{}, nil)

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
