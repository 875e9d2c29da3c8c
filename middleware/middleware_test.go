/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/utils"
)

const testSecret = "test-secret-key-for-jwt-tokens"

func TestMain(m *testing.M) {
	logs.Init("authz-tests")
	gin.SetMode(gin.TestMode)
	configuration.Config.Secret = testSecret
	configuration.Config.IdentityClaim = "sub"
	os.Exit(m.Run())
}

func newJWTRouter() *gin.Engine {
	jwtMiddleware = nil
	router := gin.New()
	router.GET("/whoami", InstanceJWT().MiddlewareFunc(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return router
}

func TestJWTAcceptsValidToken(t *testing.T) {
	router := newJWTRouter()
	token, err := utils.MintToken(testSecret, "user-42", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())
}

func TestJWTAcceptsQueryToken(t *testing.T) {
	router := newJWTRouter()
	token, err := utils.MintToken(testSecret, "user-42", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami?jwt="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTRejectsMissingAndForgedTokens(t *testing.T) {
	router := newJWTRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := utils.MintToken("another-secret", "user-42", time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	router := newJWTRouter()
	token, err := utils.MintToken(testSecret, "user-42", -time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsTokenWithoutIdentityClaim(t *testing.T) {
	router := newJWTRouter()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func stubResolver(t *testing.T, resolve func(ctx context.Context, userID string) (*models.UserProfile, error)) {
	t.Helper()
	original := resolveProfileFunc
	resolveProfileFunc = resolve
	t.Cleanup(func() { resolveProfileFunc = original })
}

func runResolveTenant(identity string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/audit/pasta1/results", nil)
	if identity != "" {
		c.Set(UserKey, identity)
	}
	ResolveTenant()(c)
	return c, w
}

func TestResolveTenantSetsTenantAndRole(t *testing.T) {
	stubResolver(t, func(ctx context.Context, userID string) (*models.UserProfile, error) {
		return &models.UserProfile{UserID: userID, TenantID: "tenant-a", Role: "auditor"}, nil
	})

	c, _ := runResolveTenant("user-42")

	assert.False(t, c.IsAborted())
	assert.Equal(t, "tenant-a", TenantID(c))
	assert.Equal(t, "auditor", Role(c))
	assert.Equal(t, "user-42", UserID(c))
}

func TestResolveTenantFailures(t *testing.T) {
	stubResolver(t, func(ctx context.Context, userID string) (*models.UserProfile, error) {
		switch userID {
		case "broken":
			return nil, errors.New("connection refused")
		default:
			return nil, nil
		}
	})

	c, w := runResolveTenant("")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = runResolveTenant("stranger")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = runResolveTenant("broken")
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
