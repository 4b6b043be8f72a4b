package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-gateway"
	"github.com/goliatone/go-auth-gateway/social/providers/google"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app    *fiber.App
	store  *memStore
	minter *auth.JWTMinter
}

func newTestApp(t *testing.T, store *memStore, opts ...func(*auth.Gateway)) *testApp {
	t.Helper()

	minter := newTestMinter()
	tokens := auth.NewJWTTokenService(store, nil, minter).WithLogger(nopLogger{})
	gw := auth.NewGateway(gatewayTestConfig{}, tokens, store).WithLogger(nopLogger{})
	for _, opt := range opts {
		opt(gw)
	}

	app := fiber.New()
	auth.NewHTTPController(gw, minter).WithLogger(nopLogger{}).WithDebug(true).Register(app)

	return &testApp{app: app, store: store, minter: minter}
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func jsonRequest(method, target string, payload any) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, strings.NewReader(string(raw)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestHTTP_LocalLoginAndStaleRefresh(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	ta := newTestApp(t, newMemStore(user))

	resp, login := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/", map[string]string{
		"email":    user.Email,
		"password": "secret",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.Email, login["email"])
	assert.Equal(t, "Ada", login["first_name"])
	assert.NotEmpty(t, login["access"])
	assert.NotEmpty(t, login["refresh"])
	assert.NotContains(t, login, "password_hash")
	first := login["refresh"].(string)

	resp, refreshed := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/refresh/", map[string]string{
		"email":   user.Email,
		"refresh": first,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, first, refreshed["refresh"])
	assert.NotEmpty(t, refreshed["access"])

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/refresh/", map[string]string{
		"email":   user.Email,
		"refresh": first,
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"detail": "Refresh token is invalid or expired"}, body)
	assert.Equal(t, refreshed["refresh"], ta.store.get(user.Email).RefreshToken)
}

func TestHTTP_RefreshFailuresShareOneBody(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	ta := newTestApp(t, newMemStore(user))

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{
			name:    "email is not an address",
			payload: map[string]string{"email": "nobody", "refresh": "x"},
		},
		{
			name:    "unknown email",
			payload: map[string]string{"email": "ghost@example.com", "refresh": "x"},
		},
		{
			name:    "missing refresh",
			payload: map[string]string{"email": user.Email},
		},
		{
			name:    "empty payload",
			payload: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/refresh/", tt.payload))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, map[string]any{"detail": "Refresh token is invalid or expired"}, body)
		})
	}
}

func TestHTTP_LoginFailures(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	ta := newTestApp(t, newMemStore(user))

	t.Run("wrong password", func(t *testing.T) {
		resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/login/", map[string]string{
			"email":    user.Email,
			"password": "wrong",
		}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "No active account found with the given credentials", body["detail"])
	})

	t.Run("unknown email", func(t *testing.T) {
		resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/login/", map[string]string{
			"email":    "ghost@example.com",
			"password": "secret",
		}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "No active account found with the given credentials", body["detail"])
	})

	t.Run("invalid payload", func(t *testing.T) {
		resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/", map[string]string{
			"email": "not-an-email",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		errs, ok := body["errors"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
	})

	t.Run("refresh for unknown email", func(t *testing.T) {
		resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/refresh/", map[string]string{
			"email":   "ghost@example.com",
			"refresh": "x",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Refresh token is invalid or expired", body["detail"])
	})
}

func newGoogleServer(t *testing.T, tokenStatus int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			if tokenStatus != http.StatusOK {
				w.WriteHeader(tokenStatus)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"g-token","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			_, _ = w.Write([]byte(`{"sub":"1","email":"grace@example.com","given_name":"Grace","family_name":"Hopper"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func withGoogle(server *httptest.Server) func(*auth.Gateway) {
	return func(gw *auth.Gateway) {
		gw.WithProviders(google.New(google.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TokenURL:     server.URL + "/token",
			UserInfoURL:  server.URL + "/userinfo",
		}))
	}
}

func TestHTTP_GoogleCodeLogin(t *testing.T) {
	server := newGoogleServer(t, http.StatusOK)
	defer server.Close()

	ta := newTestApp(t, newMemStore(), withGoogle(server))

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/login/google/?code=abc", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "grace@example.com", body["email"])
	assert.Equal(t, "Grace", body["first_name"])
	assert.NotEmpty(t, body["access"])
	assert.Equal(t, body["refresh"], ta.store.get("grace@example.com").RefreshToken)
}

func TestHTTP_GoogleCallbackRedirects(t *testing.T) {
	server := newGoogleServer(t, http.StatusOK)
	defer server.Close()

	ta := newTestApp(t, newMemStore(), withGoogle(server))

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/login/google/?error=access_denied", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example.com/login?error=access_denied", resp.Header.Get(fiber.HeaderLocation))

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/login/google/", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example.com/login?error=missing_code", resp.Header.Get(fiber.HeaderLocation))
	assert.Zero(t, ta.store.count())
}

func TestHTTP_CallbackForUnconfiguredProviderRedirects(t *testing.T) {
	ta := newTestApp(t, newMemStore())

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/login/google/?code=abc", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example.com/login?error=provider_not_found", resp.Header.Get(fiber.HeaderLocation))
	assert.Zero(t, ta.store.count())
}

func TestHTTP_GoogleProviderFailure(t *testing.T) {
	server := newGoogleServer(t, http.StatusBadRequest)
	defer server.Close()

	ta := newTestApp(t, newMemStore(), withGoogle(server))

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/login/google/?code=stale", nil))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Failed to obtain access token from Google. Detail: invalid_grant - Bad Request", body["detail"])
	assert.Zero(t, ta.store.count())
}

func TestHTTP_Authorize(t *testing.T) {
	server := newGoogleServer(t, http.StatusOK)
	defer server.Close()

	ta := newTestApp(t, newMemStore(), withGoogle(server))

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/authorize/google/", nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	target, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/auth/login/google/", target.Query().Get("redirect_uri"))

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/authorize/myspace/", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_Logout(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	ta := newTestApp(t, newMemStore(user))

	resp, login := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/", map[string]string{
		"email":    user.Email,
		"password": "secret",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login["access"].(string))
	resp, _ = ta.do(t, req)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Empty(t, ta.store.get(user.Email).RefreshToken)

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/token/refresh/", map[string]string{
		"email":   user.Email,
		"refresh": login["refresh"].(string),
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Refresh token is invalid or expired", body["detail"])

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login["refresh"].(string))
		resp, _ := ta.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/logout/", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "missing or malformed JWT", body["detail"])
	})

	t.Run("expired token", func(t *testing.T) {
		past := auth.NewJWTMinter([]byte(testSigningKey),
			auth.WithMinterIssuer("test"),
			auth.WithMinterClock(func() time.Time { return time.Now().Add(-time.Hour) }),
		)
		stored := ta.store.get(user.Email)
		pair, err := past.Mint(&stored)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.Access)
		resp, body := ta.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.DetailTokenExpired, body["detail"])
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-jwt")
		resp, body := ta.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.DetailTokenInvalid, body["detail"])
	})
}

func TestHTTP_LogoutForDeletedUser(t *testing.T) {
	store := newMemStore()
	ta := newTestApp(t, store)

	pair, err := ta.minter.Mint(&auth.User{ID: uuid.New(), Email: "gone@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.Access)
	resp, _ := ta.do(t, req)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Zero(t, store.count())
}

func TestHTTP_GoogleIDTokenWithoutVerifier(t *testing.T) {
	ta := newTestApp(t, newMemStore())

	resp, _ := ta.do(t, jsonRequest(http.MethodPost, "/auth/login/google/id-token/", map[string]string{
		"id_token": "whatever",
	}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_GoogleIDTokenRejected(t *testing.T) {
	verifier := google.NewIDTokenVerifier("client-id", nil)
	ta := newTestApp(t, newMemStore(), func(gw *auth.Gateway) {
		gw.WithIDTokenVerifier(verifier)
	})

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/auth/login/google/id-token/", map[string]string{
		"id_token": "not-a-jwt",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "id_token is invalid", body["detail"])
}
