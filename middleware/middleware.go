/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package middleware

import (
	"time"

	"github.com/pkg/errors"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	jwt "github.com/appleboy/gin-jwt/v2"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/utils"
)

var jwtMiddleware *jwt.GinJWTMiddleware

func InstanceJWT() *jwt.GinJWTMiddleware {
	if jwtMiddleware == nil {
		jwtMiddleware = InitJWT()
	}
	return jwtMiddleware
}

// InitJWT builds a validation-only middleware: tokens are issued by the
// identity provider and signed with the shared secret.
func InitJWT() *jwt.GinJWTMiddleware {
	identityClaim := configuration.Config.IdentityClaim

	// define jwt middleware
	authMiddleware, errDefine := jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "voltdocs",
		Key:         []byte(configuration.Config.Secret),
		Timeout:     time.Hour,
		IdentityKey: UserKey,
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			identity, _ := claims[identityClaim].(string)
			if identity == "" {
				return nil
			}
			return identity
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			identity, ok := data.(string)
			return ok && identity != ""
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, structs.Map(models.StatusUnauthorized{
				Code:    code,
				Message: message,
				Data:    nil,
			}))
		},
		TokenLookup:   "header: Authorization, query: jwt",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})

	// check middleware errors
	if errDefine != nil {
		utils.LogError(errors.Wrap(errDefine, "[AUTH] middleware definition error"))
	}

	// init middleware
	errInit := authMiddleware.MiddlewareInit()

	// check error on initialization
	if errInit != nil {
		utils.LogError(errors.Wrap(errInit, "[AUTH] middleware initialization error"))
	}

	// return object
	return authMiddleware
}
