package handler

import (
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/user"
)

func testSession() *user.Session {
	return &user.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User: &user.User{
			ID:           "u1",
			Name:         "Alice",
			Email:        "alice@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleClient,
		},
	}
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)
	api.users.EXPECT().Register(gomock.Any(), user.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
		Role:     "client",
	}).Return(testSession(), nil)

	res := api.do(t, http.MethodPost, "/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","password":"password123","role":"client"}`)

	require.Equal(t, http.StatusCreated, res.StatusCode)
	want := sessionResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         userResponse{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "client"},
	}
	if diff := cmp.Diff(want, decodeBody[sessionResponse](t, res)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing fields", user.ErrMissingFields, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad role", auth.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate email", user.ErrEmailTaken, http.StatusBadRequest, "EMAIL_TAKEN"},
		{"password too long", user.ErrPasswordTooLong, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.users.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			res := api.do(t, http.MethodPost, "/auth/register", "", `{"email":"a@b.c"}`)
			requireError(t, res, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	api.users.EXPECT().Login(gomock.Any(), "alice@example.com", "password123").Return(testSession(), nil)
	api.users.EXPECT().Login(gomock.Any(), "alice@example.com", "wrong").Return(nil, user.ErrInvalidCredentials)

	res := api.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decodeBody[sessionResponse](t, res)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "u1", got.User.ID)

	res = api.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong"}`)
	detail := requireError(t, res, http.StatusUnauthorized, "AUTH_INVALID")
	assert.Equal(t, "Invalid credentials", detail.Message)
}

func TestLogin_MalformedJSON(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/auth/login", "", `not json`)
	requireError(t, res, http.StatusBadRequest, "BAD_REQUEST")
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		token      string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "ok", body: `{"refreshToken":"r1"}`, token: "r1", wantStatus: http.StatusOK},
		{
			name: "missing", body: `{}`, err: user.ErrRefreshTokenRequired,
			wantStatus: http.StatusBadRequest, wantCode: "REFRESH_TOKEN_REQUIRED",
		},
		{
			name: "revoked", body: `{"refreshToken":"old"}`, token: "old", err: user.ErrInvalidRefreshToken,
			wantStatus: http.StatusUnauthorized, wantCode: "INVALID_REFRESH_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			access := ""
			if tt.err == nil {
				access = "new-access"
			}
			api.users.EXPECT().Refresh(gomock.Any(), tt.token).Return(access, tt.err)

			res := api.do(t, http.MethodPost, "/auth/refresh", "", tt.body)
			if tt.err != nil {
				requireError(t, res, tt.wantStatus, tt.wantCode)
				return
			}
			require.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, "new-access", decodeBody[accessTokenResponse](t, res).AccessToken)
		})
	}
}

func TestAuthLimiter(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
		})
	}
	router := NewHandler(Deps{AuthLimiter: blocked}).Routes()

	res := serve(router, newRequest(http.MethodPost, "/auth/login", `{}`))
	requireError(t, res, http.StatusTooManyRequests, "RATE_LIMITED")
}
