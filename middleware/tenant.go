/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const (
	UserKey   = "user_id"
	TenantKey = "tenant_id"
	RoleKey   = "role"
)

// ProfileResolver maps an authenticated identity to its tenant and role.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

var resolveProfileFunc = func(ctx context.Context, userID string) (*models.UserProfile, error) {
	return nil, fmt.Errorf("profile resolver not configured")
}

// SetProfileResolver installs the resolver used by ResolveTenant.
func SetProfileResolver(resolver ProfileResolver) {
	resolveProfileFunc = resolver.ResolveProfile
}

// ResolveTenant loads the profile of the JWT identity and stores tenant and
// role in the request context. It must run after the JWT middleware.
func ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(UserKey)
		identity, _ := userID.(string)
		if identity == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, structs.Map(models.StatusUnauthorized{
				Code:    http.StatusUnauthorized,
				Message: "missing identity",
				Data:    nil,
			}))
			return
		}

		profile, err := resolveProfileFunc(c.Request.Context(), identity)
		if err != nil {
			logs.Log(fmt.Sprintf("[ERROR][AUTHZ] profile lookup failed for %s: %v", identity, err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, structs.Map(models.StatusInternalServerError{
				Code:    http.StatusInternalServerError,
				Message: err.Error(),
				Data:    nil,
			}))
			return
		}
		if profile == nil || profile.TenantID == "" {
			logs.Log(fmt.Sprintf("[WARNING][AUTHZ] no tenant profile for %s", identity))
			c.AbortWithStatusJSON(http.StatusForbidden, structs.Map(models.StatusForbidden{
				Code:    http.StatusForbidden,
				Message: "profile not found",
				Data:    nil,
			}))
			return
		}

		c.Set(TenantKey, profile.TenantID)
		c.Set(RoleKey, profile.Role)
		c.Next()
	}
}

// TenantID returns the tenant resolved for the request.
func TenantID(c *gin.Context) string {
	return c.GetString(TenantKey)
}

// UserID returns the authenticated identity.
func UserID(c *gin.Context) string {
	return c.GetString(UserKey)
}

func Role(c *gin.Context) string {
	return c.GetString(RoleKey)
}
