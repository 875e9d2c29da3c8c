/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	"github.com/walterneylp/voltdocs19022026-sub000/middleware"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
	"github.com/walterneylp/voltdocs19022026-sub000/rag"
)

// IndexRebuilder rebuilds the chunk index of a tenant.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, tenantID string, documentIDs ...string) (rag.IndexStats, error)
}

var indexRebuilder IndexRebuilder

// SetIndexRebuilder installs the rebuilder; nil disables the endpoint.
func SetIndexRebuilder(rebuilder IndexRebuilder) {
	indexRebuilder = rebuilder
}

// PostPasta1Index godoc
// @Summary Rebuild the similarity index of the caller's tenant
// @Produce  json
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 503 {object} models.StatusServiceUnavailable{code=int,message=string,data=object}
// @Router /audit/pasta1/index [post]
// @Tags /audit pasta1
func PostPasta1Index(c *gin.Context) {
	if indexRebuilder == nil {
		respondError(c, pasta1.ErrIndexUnavailable)
		return
	}

	stats, err := indexRebuilder.Rebuild(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, structs.Map(stats))
}
